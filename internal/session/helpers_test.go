package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/aurelio-labs/aiversity/internal/domain"
)

const waitFor = 2 * time.Second

var errConnClosed = errors.New("connection closed")

type fakeConn struct {
	frames    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.frames:
		return 1, f, nil
	case <-c.closed:
		return 0, nil, errConnClosed
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// drop simulates the relay side going away.
func (c *fakeConn) drop() { _ = c.Close() }

func (c *fakeConn) push(frame string) { c.frames <- []byte(frame) }

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// fakeDialer fails the first failures dials and then hands out fresh conns.
type fakeDialer struct {
	mu       sync.Mutex
	failures int
	urls     []string
	conns    []*fakeConn
	attempts atomic.Int32
}

func (d *fakeDialer) Dial(_ context.Context, url string) (domain.SubscriberConn, error) {
	d.attempts.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("connection refused")
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func (d *fakeDialer) dialedURLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []domain.ChatRequest
	respond  func(domain.ChatRequest) (domain.ChatResponse, error)
}

func (b *fakeBackend) SubmitChat(_ context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	respond := b.respond
	b.mu.Unlock()
	if respond == nil {
		return domain.ChatResponse{Success: true, UserID: req.UserID}, nil
	}
	return respond(req)
}

func (b *fakeBackend) sent() []domain.ChatRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.ChatRequest(nil), b.requests...)
}

func testConfig() Config {
	return Config{
		SubscriberURL:  "ws://relay.test/ws/{user_id}",
		ReconnectDelay: 3 * time.Second,
		IdleTimeout:    100 * time.Second,
		SubmitTimeout:  time.Second,
	}
}

func startSession(t *testing.T, cfg Config, clock clockwork.Clock, dialer *fakeDialer, backend *fakeBackend, opts ...Option) *Session {
	t.Helper()
	s := New(cfg, clock, dialer, backend, opts...)
	s.Start()
	t.Cleanup(s.Close)
	return s
}

func snapshot(t *testing.T, s *Session) Snapshot {
	t.Helper()
	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	return snap
}

func waitUntil(t *testing.T, s *Session, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	var last Snapshot
	require.Eventually(t, func() bool {
		last = snapshot(t, s)
		return cond(last)
	}, waitFor, time.Millisecond, "last snapshot: %+v", last)
	return last
}

func connected(s Snapshot) bool { return s.State == domain.Connected }

func blockUntilTimers(t *testing.T, clock *clockwork.FakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, n))
}

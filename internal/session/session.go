package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/aurelio-labs/aiversity/internal/domain"
)

// UserIDPlaceholder is replaced by the session identity in SubscriberURL.
const UserIDPlaceholder = "{user_id}"

const eventBuffer = 64

type Config struct {
	// SubscriberURL may contain UserIDPlaceholder.
	SubscriberURL  string
	UserID         string
	ReconnectDelay time.Duration
	IdleTimeout    time.Duration
	SubmitTimeout  time.Duration
}

// Snapshot is a copy of the session state for rendering.
type Snapshot struct {
	State      domain.ConnState
	UserID     string
	Transcript []domain.Entry
	Actions    []domain.ActionFrame
	// Waiting is true while the idle timer is armed, i.e. a reply is expected.
	Waiting bool
	// Reconnecting is true while a reconnect is scheduled.
	Reconnecting bool
}

type Session struct {
	cfg     Config
	clock   clockwork.Clock
	dialer  domain.SubscriberDialer
	backend domain.ChatBackend

	onUpdate func(Snapshot)

	events    chan event
	stopped   chan struct{}
	startOnce sync.Once
	closeOnce sync.Once

	// dialCtx aborts an in-flight dial on Close.
	dialCtx    context.Context
	cancelDial context.CancelFunc

	// Owned by the run loop.
	state      domain.ConnState
	userID     string
	transcript []domain.Entry
	actions    []domain.ActionFrame
	conn       domain.SubscriberConn
	gen        uint64
	reconnect  clockwork.Timer
	idle       clockwork.Timer
	idleGen    uint64
	waiting    bool
}

type Option func(*Session)

// WithOnUpdate registers a callback invoked on the session goroutine after
// every state change. It must not block or call back into the session.
func WithOnUpdate(fn func(Snapshot)) Option {
	return func(s *Session) { s.onUpdate = fn }
}

func New(cfg Config, clock clockwork.Clock, dialer domain.SubscriberDialer, backend domain.ChatBackend, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:        cfg,
		clock:      clock,
		dialer:     dialer,
		backend:    backend,
		events:     make(chan event, eventBuffer),
		stopped:    make(chan struct{}),
		dialCtx:    ctx,
		cancelDial: cancel,
		userID:     cfg.UserID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the session loop. With a preconfigured identity the
// subscriber connection is opened right away; otherwise it opens after the
// first successful submission.
func (s *Session) Start() {
	s.startOnce.Do(func() {
		go s.run()
		s.post(startEvt{})
	})
}

// Send appends text to the transcript as a user entry and submits it to the
// chat backend in the background. Blank input is ignored.
func (s *Session) Send(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if !s.post(sendEvt{text: text}) {
		return domain.ErrSessionClosed
	}
	return nil
}

// Note appends a non-user entry that did not come from the agent, such as
// the outcome of a file action. The idle timer is left alone.
func (s *Session) Note(text string) error {
	if !s.post(noteEvt{text: text}) {
		return domain.ErrSessionClosed
	}
	return nil
}

// Clear empties the transcript and the action log.
func (s *Session) Clear() error {
	if !s.post(clearEvt{}) {
		return domain.ErrSessionClosed
	}
	return nil
}

// Snapshot returns the current state. After Close it returns ErrSessionClosed.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if !s.post(snapshotEvt{reply: reply}) {
		return Snapshot{}, domain.ErrSessionClosed
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-s.stopped:
		return Snapshot{}, domain.ErrSessionClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Close ends the session intentionally: timers are cancelled, the connection
// is closed without a reconnect, and the loop exits. Submissions already in
// flight are left to finish; their results are discarded.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancelDial()
		s.startOnce.Do(func() { close(s.stopped) })
		if s.post(closeEvt{}) {
			<-s.stopped
		}
	})
}

// post hands ev to the loop. It reports false once the loop has exited.
func (s *Session) post(ev event) bool {
	select {
	case <-s.stopped:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.stopped:
		return false
	}
}

func (s *Session) run() {
	defer close(s.stopped)
	for ev := range s.events {
		if _, ok := ev.(closeEvt); ok {
			s.teardown()
			s.notify()
			return
		}
		if s.handle(ev) {
			s.notify()
		}
	}
}

// handle applies ev and reports whether the visible state changed.
func (s *Session) handle(ev event) bool {
	switch e := ev.(type) {
	case startEvt:
		if s.userID != "" {
			s.connect()
			return true
		}
		return false
	case sendEvt:
		s.handleSend(e.text)
		return true
	case submitDoneEvt:
		return s.handleSubmitDone(e)
	case dialDoneEvt:
		return s.handleDialDone(e)
	case frameEvt:
		return s.handleFrame(e)
	case connClosedEvt:
		if e.gen != s.gen || s.conn == nil {
			return false
		}
		slog.Info("Subscriber connection lost", "error", e.err)
		s.closeConn(domain.Unexpected)
		return true
	case reconnectEvt:
		if e.gen != s.gen || s.state != domain.Disconnected {
			return false
		}
		s.reconnect = nil
		s.connect()
		return true
	case idleEvt:
		if e.gen != s.idleGen || !s.waiting {
			return false
		}
		s.idle = nil
		s.waiting = false
		s.transcript = append(s.transcript, domain.AgentEntry(domain.NoResponseText))
		return true
	case noteEvt:
		s.transcript = append(s.transcript, domain.AgentEntry(e.text))
		return true
	case clearEvt:
		s.transcript = nil
		s.actions = nil
		return true
	case snapshotEvt:
		e.reply <- s.snapshot()
		return false
	default:
		slog.Warn("Session received unknown event", "event", ev)
		return false
	}
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		State:        s.state,
		UserID:       s.userID,
		Transcript:   append([]domain.Entry(nil), s.transcript...),
		Actions:      append([]domain.ActionFrame(nil), s.actions...),
		Waiting:      s.waiting,
		Reconnecting: s.reconnect != nil,
	}
}

func (s *Session) notify() {
	if s.onUpdate != nil {
		s.onUpdate(s.snapshot())
	}
}

func (s *Session) teardown() {
	s.disarmIdle()
	s.closeConn(domain.Intentional)
	slog.Info("Session closed")
}

// subscriberURL substitutes the session identity into the configured URL.
func (s *Session) subscriberURL() string {
	return strings.ReplaceAll(s.cfg.SubscriberURL, UserIDPlaceholder, s.userID)
}

var errNoIdentity = errors.New("no session identity")

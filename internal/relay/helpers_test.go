package relay

import (
	"errors"
	"sync"
	"time"
)

var errConnClosed = errors.New("use of closed connection")

// fakeConn records written frames. A non-nil gate makes writes block until
// the gate or the connection is closed.
type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	types    []int
	writeErr error
	gate     chan struct{}
	closed   chan struct{}
	once     sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-c.closed:
			return errConnClosed
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.frames = append(c.frames, cp)
	c.types = append(c.types, messageType)
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.frames))
	for i, f := range c.frames {
		out[i] = string(f)
	}
	return out
}

func (c *fakeConn) lastType() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.types) == 0 {
		return 0
	}
	return c.types[len(c.types)-1]
}

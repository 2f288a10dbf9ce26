package relay

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/aurelio-labs/aiversity/internal/adapter/metrics"
)

// Conn is the part of *websocket.Conn the relay writes through.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type subscriberState int32

const (
	stateOpen subscriberState = iota
	stateClosing
	stateClosed
)

func (s subscriberState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// subscriber owns the write side of one connection. Pushes are queued and
// written in order by a dedicated goroutine.
type subscriber struct {
	id           uuid.UUID
	conn         Conn
	clock        clockwork.Clock
	writeTimeout time.Duration
	metrics      *metrics.RelayMetrics

	st          atomic.Int32
	sendChannel chan []byte
	doneChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func newSubscriber(conn Conn, clock clockwork.Clock, bufferSize int, writeTimeout time.Duration, m *metrics.RelayMetrics) *subscriber {
	s := &subscriber{
		id:           uuid.New(),
		conn:         conn,
		clock:        clock,
		writeTimeout: writeTimeout,
		metrics:      m,
		sendChannel:  make(chan []byte, bufferSize),
		doneChannel:  make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *subscriber) state() subscriberState {
	return subscriberState(s.st.Load())
}

// markClosed moves the subscriber out of OPEN and closes the connection so
// the transport's read loop surfaces the close and unregisters it.
func (s *subscriber) markClosed(to subscriberState, reason string) {
	for {
		cur := s.st.Load()
		if subscriberState(cur) >= to {
			return
		}
		if s.st.CompareAndSwap(cur, int32(to)) {
			break
		}
	}
	slog.Debug("Subscriber no longer open", "subscriber_id", s.id, "state", to.String(), "reason", reason)
	_ = s.conn.Close()
}

// push queues data for writing. It returns false if the queue was full, in
// which case the subscriber is moved to CLOSING.
func (s *subscriber) push(data []byte) bool {
	select {
	case s.sendChannel <- data:
		return true
	default:
		s.markClosed(stateClosing, "send queue full")
		return false
	}
}

func (s *subscriber) run() {
	defer s.wg.Done()

	for {
		select {
		case msg := <-s.sendChannel:
			start := s.clock.Now()
			_ = s.conn.SetWriteDeadline(start.Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.metrics.WriteFailed()
				s.markClosed(stateClosed, err.Error())
				return
			}
			s.metrics.ObserveWrite(s.clock.Since(start))
		case <-s.doneChannel:
			return
		}
	}
}

// stop ends the writer and closes the connection without a close frame.
func (s *subscriber) stop() {
	s.stopOnce.Do(func() {
		s.st.Store(int32(stateClosed))
		close(s.doneChannel)
		_ = s.conn.Close()
	})
	s.wg.Wait()
}

// stopGraceful sends a close frame with reason before closing.
func (s *subscriber) stopGraceful(reason string) {
	s.stopOnce.Do(func() {
		s.st.Store(int32(stateClosed))
		close(s.doneChannel)

		// The writer must exit before we write the close frame.
		s.wg.Wait()

		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		_ = s.conn.SetWriteDeadline(s.clock.Now().Add(s.writeTimeout))
		_ = s.conn.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = s.conn.Close()
	})
}

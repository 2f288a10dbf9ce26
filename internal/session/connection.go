package session

import (
	"log/slog"

	"github.com/aurelio-labs/aiversity/internal/domain"
)

// connect starts a dial for a new connection generation.
func (s *Session) connect() {
	if s.userID == "" {
		slog.Debug("Not connecting", "reason", errNoIdentity)
		return
	}

	s.gen++
	gen := s.gen
	s.state = domain.Connecting
	url := s.subscriberURL()

	slog.Debug("Connecting subscriber", "url", url, "generation", gen)
	go func() {
		conn, err := s.dialer.Dial(s.dialCtx, url)
		if !s.post(dialDoneEvt{gen: gen, conn: conn, err: err}) && conn != nil {
			_ = conn.Close()
		}
	}()
}

func (s *Session) handleDialDone(e dialDoneEvt) bool {
	if e.gen != s.gen || s.state != domain.Connecting {
		if e.conn != nil {
			_ = e.conn.Close()
		}
		return false
	}

	if e.err != nil {
		slog.Warn("Subscriber connection failed", "error", e.err, "retry_in", s.cfg.ReconnectDelay)
		s.state = domain.Disconnected
		s.scheduleReconnect()
		return true
	}

	s.conn = e.conn
	s.state = domain.Connected
	slog.Info("Subscriber connected", "user_id", s.userID)

	go s.readLoop(e.gen, e.conn)
	return true
}

// readLoop forwards every inbound payload until the connection fails.
func (s *Session) readLoop(gen uint64, conn domain.SubscriberConn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.post(connClosedEvt{gen: gen, err: err})
			return
		}
		if !s.post(frameEvt{gen: gen, data: data}) {
			return
		}
	}
}

// closeConn tears down the current connection. Only an Unexpected closure
// schedules a reconnect.
func (s *Session) closeConn(reason domain.CloseReason) {
	s.gen++
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.state = domain.Disconnected

	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
	if reason == domain.Unexpected {
		s.scheduleReconnect()
	}
}

func (s *Session) scheduleReconnect() {
	gen := s.gen
	s.reconnect = s.clock.AfterFunc(s.cfg.ReconnectDelay, func() {
		s.post(reconnectEvt{gen: gen})
	})
}

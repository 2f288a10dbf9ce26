package session

import (
	"context"
	"log/slog"

	"github.com/aurelio-labs/aiversity/internal/domain"
)

func (s *Session) handleFrame(e frameEvt) bool {
	if e.gen != s.gen {
		return false
	}

	frame, err := domain.DecodeFrame(e.data)
	if err != nil {
		slog.Warn("Dropping subscriber frame", "error", err)
		return false
	}

	switch f := frame.(type) {
	case domain.ContentFrame:
		s.transcript = append(s.transcript, domain.AgentEntry(f.Text))
		s.disarmIdle()
		if f.Action != nil {
			s.actions = append(s.actions, *f.Action)
		}
		return true
	case domain.ActionFrame:
		s.actions = append(s.actions, f)
		return true
	default:
		slog.Debug("Ignoring unknown subscriber frame", "bytes", len(e.data))
		return false
	}
}

func (s *Session) handleSend(text string) {
	s.transcript = append(s.transcript, domain.UserEntry(text))
	s.armIdle()

	req := domain.ChatRequest{Message: text, UserID: s.userID}
	go func() {
		ctx := context.Background()
		if s.cfg.SubmitTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.SubmitTimeout)
			defer cancel()
		}
		resp, err := s.backend.SubmitChat(ctx, req)
		s.post(submitDoneEvt{resp: resp, err: err})
	}()
}

func (s *Session) handleSubmitDone(e submitDoneEvt) bool {
	if e.err != nil {
		slog.Warn("Chat submission failed", "error", e.err)
		s.transcript = append(s.transcript, domain.AgentEntry(domain.SubmitErrorText))
		// The error entry is the reply; no second no-response entry follows.
		s.disarmIdle()
		return true
	}

	if s.userID != "" || e.resp.UserID == "" {
		return false
	}

	s.userID = e.resp.UserID
	slog.Info("Session identity assigned", "user_id", s.userID)
	if s.state == domain.Disconnected && s.reconnect == nil {
		s.connect()
	}
	return true
}

// armIdle (re)starts the one-shot no-response timer.
func (s *Session) armIdle() {
	s.disarmIdle()
	if s.cfg.IdleTimeout <= 0 {
		return
	}
	gen := s.idleGen
	s.waiting = true
	s.idle = s.clock.AfterFunc(s.cfg.IdleTimeout, func() {
		s.post(idleEvt{gen: gen})
	})
}

func (s *Session) disarmIdle() {
	s.idleGen++
	s.waiting = false
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
}

package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Subscribers only listen; anything they send is read and discarded.
const maxInboundMessageBytes = 4096

func (s *Server) registerSubscriberRoutes() {
	path := s.config.WSPath
	s.echo.GET(path, s.handleSubscribe)
	// The client puts its session identity in the path. The relay is
	// identity-agnostic and ignores it.
	s.echo.GET(path+"/:user_id", s.handleSubscribe)
}

func (s *Server) handleSubscribe(c echo.Context) error {
	ctx := c.Request().Context()
	ip := c.RealIP()

	if ok, reason := s.limits.Acquire(ip); !ok {
		if s.wsMetrics != nil {
			s.wsMetrics.RejectedConnections.WithLabelValues(string(reason)).Inc()
		}
		slog.WarnContext(ctx, "Subscriber connection rejected", "remote_ip", ip, "reason", reason)

		status := http.StatusServiceUnavailable
		if reason != LimitReasonGlobal {
			status = http.StatusTooManyRequests
		}
		if err := c.JSON(status, map[string]string{"error": "connection limit exceeded", "reason": string(reason)}); err != nil {
			return fmt.Errorf("failed to write rejection: %w", err)
		}
		return nil
	}
	defer s.limits.Release(ip)

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written an HTTP error.
		if s.wsMetrics != nil {
			s.wsMetrics.UpgradeFailures.Inc()
		}
		slog.DebugContext(ctx, "WebSocket upgrade failed", "remote_ip", ip, "error", err)
		return nil
	}

	if err := s.relay.Register(conn); err != nil {
		slog.ErrorContext(ctx, "Failed to register subscriber", "remote_ip", ip, "error", err)
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "relay unavailable")
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		_ = conn.Close()
		return nil
	}
	defer s.relay.Unregister(conn)

	if s.wsMetrics != nil {
		s.wsMetrics.ActiveConnections.Inc()
		defer s.wsMetrics.ActiveConnections.Dec()
	}

	slog.DebugContext(ctx, "Subscriber connected", "remote_ip", ip, "user_id", c.Param("user_id"))
	s.readPump(conn)
	slog.DebugContext(ctx, "Subscriber disconnected", "remote_ip", ip)

	return nil
}

// readPump blocks until the connection fails or is closed. Its return is the
// close event that removes the subscriber from the relay.
func (s *Server) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxInboundMessageBytes)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("Subscriber read error", "error", err)
			}
			return
		}
	}
}

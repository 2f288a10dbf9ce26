package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aurelio-labs/aiversity/internal/domain"
	apperrors "github.com/aurelio-labs/aiversity/internal/platform/errors"
	"github.com/aurelio-labs/aiversity/internal/relay"
)

const maxSubmitBodyBytes = 1 << 20

func (s *Server) registerAPIRoutes() {
	api := s.echo.Group("/api")

	var mw []echo.MiddlewareFunc
	if s.config.SubmitRatePerIP > 0 {
		mw = append(mw, newRateLimiter(s.config.SubmitRatePerIP, s.config.SubmitRateBurst))
	}

	api.POST("/receive-message", s.handleReceiveMessage, mw...)
}

// handleReceiveMessage broadcasts the body's message field to every open
// subscriber. The acknowledgment does not depend on how many received it.
func (s *Server) handleReceiveMessage(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxSubmitBodyBytes+1))
	if err != nil {
		return apperrors.ValidationError("failed to read request body").WithContext("error", err.Error())
	}
	if len(body) > maxSubmitBodyBytes {
		return apperrors.ValidationError("request body too large").WithContext("limit_bytes", maxSubmitBodyBytes)
	}

	var req domain.SubmitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return apperrors.ValidationError("request body must be a JSON object").WithContext("error", err.Error())
	}

	receipt, err := s.relay.Submit(c.Request().Context(), req.Message)
	switch {
	case errors.Is(err, domain.ErrRelayStopped):
		return apperrors.UnavailableError("relay is shutting down", err)
	case errors.Is(err, relay.ErrInvalidMessage):
		return apperrors.ValidationError("message is not valid JSON")
	case err != nil:
		return apperrors.InternalError("failed to broadcast message", err)
	}

	slog.DebugContext(c.Request().Context(), "Message accepted",
		"queued", receipt.Queued,
		"skipped", receipt.Skipped,
		"failed", receipt.Failed,
	)

	if err := c.JSON(http.StatusOK, domain.SubmitResponse{Status: domain.SubmitAck}); err != nil {
		return fmt.Errorf("failed to write submit response: %w", err)
	}
	return nil
}

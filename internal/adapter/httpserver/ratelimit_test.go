package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurelio-labs/aiversity/internal/platform/config"
	"github.com/aurelio-labs/aiversity/internal/platform/correlation"
	apperrors "github.com/aurelio-labs/aiversity/internal/platform/errors"
)

const testRemoteAddr = "1.2.3.4:1234"

func callLimited(t *testing.T, handler echo.HandlerFunc, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/receive-message", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h := correlationMiddleware(ErrorHandlingMiddleware()(handler))
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestRateLimiter(t *testing.T) {
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }

	t.Run("allows burst", func(t *testing.T) {
		handler := newRateLimiter(10, 3)(ok)
		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusOK, callLimited(t, handler, testRemoteAddr).Code)
		}
	})

	t.Run("blocks past burst", func(t *testing.T) {
		handler := newRateLimiter(0.01, 1)(ok)
		assert.Equal(t, http.StatusOK, callLimited(t, handler, testRemoteAddr).Code)

		rec := callLimited(t, handler, testRemoteAddr)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "100", rec.Header().Get("Retry-After"))
		assert.NotEmpty(t, rec.Header().Get(correlation.Header))

		var resp apperrors.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, apperrors.TypeRateLimited, resp.Type)
		assert.Equal(t, "submission rate limit exceeded", resp.Error)
		assert.Equal(t, "1.2.3.4", resp.Context["client_ip"])
		assert.InDelta(t, 100, resp.Context["retry_after_seconds"], 0)
	})

	t.Run("tracks addresses independently", func(t *testing.T) {
		handler := newRateLimiter(0.01, 1)(ok)
		assert.Equal(t, http.StatusOK, callLimited(t, handler, testRemoteAddr).Code)
		assert.Equal(t, http.StatusOK, callLimited(t, handler, "5.6.7.8:5678").Code)
		assert.Equal(t, http.StatusTooManyRequests, callLimited(t, handler, testRemoteAddr).Code)
	})
}

func TestSubmitRateLimitIsOptIn(t *testing.T) {
	post := func(srv *Server) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/receive-message", strings.NewReader(`{"message":1}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(correlation.Header, "agent-req-1")
		req.RemoteAddr = testRemoteAddr
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		return rec
	}

	open := newTestServer(t, &fakeRelay{})
	for i := 0; i < 20; i++ {
		require.Equal(t, http.StatusOK, post(open).Code)
	}

	relay := &fakeRelay{}
	limited := newTestServer(t, relay, withConfig(func(cfg *config.Relay) {
		cfg.SubmitRatePerIP = 0.01
		cfg.SubmitRateBurst = 2
	}))
	assert.Equal(t, http.StatusOK, post(limited).Code)
	assert.Equal(t, http.StatusOK, post(limited).Code)

	rec := post(limited)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "agent-req-1", rec.Header().Get(correlation.Header))

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.TypeRateLimited, resp.Type)
	assert.Len(t, relay.messages(), 2, "rejected submissions are not broadcast")
}

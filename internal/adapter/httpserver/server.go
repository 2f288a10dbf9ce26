package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aurelio-labs/aiversity/internal/adapter/metrics"
	wsadapter "github.com/aurelio-labs/aiversity/internal/adapter/websocket"
	"github.com/aurelio-labs/aiversity/internal/platform/config"
	"github.com/aurelio-labs/aiversity/internal/relay"
)

type relayService interface {
	Register(conn relay.Conn) error
	Unregister(conn relay.Conn)
	Submit(ctx context.Context, message json.RawMessage) (relay.Receipt, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Relay
	relay  relayService

	limits   *ConnectionLimits
	upgrader websocket.Upgrader

	wsMetrics      *metrics.WebSocketMetrics
	httpMetrics    *metrics.HTTPMetrics
	metricsHandler http.Handler

	healthChecks []HealthCheck
	clock        clockwork.Clock
	startTime    time.Time
}

// NewServer wires the relay behind echo. reg may be nil, in which case no
// metrics are recorded and /metrics is not served.
func NewServer(cfg *config.Relay, relay relayService, reg *prometheus.Registry, clock clockwork.Clock, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:   e,
		config: cfg,
		relay:  relay,
		limits: NewConnectionLimits(clock,
			int64(cfg.MaxWebSocketConnections),
			cfg.MaxConnectionsPerIP,
			cfg.ConnectionRatePerIP,
			cfg.ConnectionRateBurst,
		),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     wsadapter.NewCheckOrigin(cfg.AppURL, cfg.AppEnv != "production"),
		},
		healthChecks: healthChecks,
		clock:        clock,
		startTime:    clock.Now(),
	}

	if reg != nil {
		srv.wsMetrics = metrics.NewWebSocketMetrics(reg)
		srv.httpMetrics = metrics.NewHTTPMetrics(reg)
		srv.metricsHandler = metrics.Handler(reg)
	}

	srv.registerRoutes()

	return srv
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	slog.Info("Starting relay", "port", s.config.Port, "ws_path", s.config.WSPath)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/aurelio-labs/aiversity/internal/adapter/httpserver"
	"github.com/aurelio-labs/aiversity/internal/adapter/metrics"
	"github.com/aurelio-labs/aiversity/internal/platform/config"
	"github.com/aurelio-labs/aiversity/internal/platform/logging"
	"github.com/aurelio-labs/aiversity/internal/platform/version"
	"github.com/aurelio-labs/aiversity/internal/relay"
)

const shutdownTimeout = 10 * time.Second

func setupConfig() *config.Relay {
	cfg, err := config.LoadRelay()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat, nil)
	slog.Info("Relay starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().String())

	reg := metrics.NewRegistry()
	r := relay.NewRelay(clock, cfg.SubscriberBufferSize, cfg.WriteTimeout, metrics.NewRelayMetrics(reg))

	srv := httpserver.NewServer(cfg, r, reg, clock, []httpserver.HealthCheck{
		{Name: "relay", Check: r.Check},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")

		// Subscriber handlers are hijacked connections the HTTP server does
		// not wait for, so close them through the relay first.
		r.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Relay exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Relay stopped")
}

package httpserver

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aurelio-labs/aiversity/internal/platform/config"
	"github.com/aurelio-labs/aiversity/internal/relay"
)

type fakeRelay struct {
	mu          sync.Mutex
	submitted   []json.RawMessage
	registered  int
	submitErr   error
	registerErr error
}

func (f *fakeRelay) Register(relay.Conn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered++
	return nil
}

func (f *fakeRelay) Unregister(relay.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered--
}

func (f *fakeRelay) Submit(_ context.Context, message json.RawMessage) (relay.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return relay.Receipt{}, f.submitErr
	}
	f.submitted = append(f.submitted, message)
	return relay.Receipt{Queued: f.registered}, nil
}

func (f *fakeRelay) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.submitted))
	for i, m := range f.submitted {
		out[i] = string(m)
	}
	return out
}

type testServerOption func(*testServerOptions)

type testServerOptions struct {
	cfg          *config.Relay
	healthChecks []HealthCheck
	registry     *prometheus.Registry
	clock        clockwork.Clock
}

func withHealthChecks(checks ...HealthCheck) testServerOption {
	return func(o *testServerOptions) { o.healthChecks = checks }
}

func withConfig(mutate func(*config.Relay)) testServerOption {
	return func(o *testServerOptions) { mutate(o.cfg) }
}

func withRegistry(reg *prometheus.Registry) testServerOption {
	return func(o *testServerOptions) { o.registry = reg }
}

func withClock(clock clockwork.Clock) testServerOption {
	return func(o *testServerOptions) { o.clock = clock }
}

func testConfig() *config.Relay {
	return &config.Relay{
		AppEnv:                  "test",
		Port:                    "0",
		WSPath:                  "/ws",
		MaxWebSocketConnections: 100,
		MaxConnectionsPerIP:     10,
		ConnectionRatePerIP:     100,
		ConnectionRateBurst:     100,
		SubmitRateBurst:         50,
		SubscriberBufferSize:    16,
	}
}

func newTestServer(t *testing.T, r relayService, opts ...testServerOption) *Server {
	t.Helper()
	o := &testServerOptions{cfg: testConfig(), clock: clockwork.NewFakeClock()}
	for _, opt := range opts {
		opt(o)
	}
	return NewServer(o.cfg, r, o.registry, o.clock, o.healthChecks)
}

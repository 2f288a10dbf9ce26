package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Push outcomes recorded by RelayMetrics.Push.
const (
	PushQueued   = "queued"
	PushSkipped  = "skipped"
	PushOverflow = "overflow"
	PushPanic    = "panic"
)

// RelayMetrics holds Prometheus metrics for the broadcast relay. A nil
// *RelayMetrics is valid and records nothing.
type RelayMetrics struct {
	Subscribers       prometheus.Gauge
	Submissions       prometheus.Counter
	Pushes            *prometheus.CounterVec
	WriteFailures     prometheus.Counter
	WriteDuration     prometheus.Histogram
	CommandQueueDepth prometheus.Gauge
	Panics            prometheus.Counter
}

// NewRelayMetrics creates and registers relay metrics on the given registry.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "subscribers",
			Help:      "Number of registered subscriber connections.",
		}),
		Submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "submissions_total",
			Help:      "Total number of messages submitted for broadcast.",
		}),
		Pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "pushes_total",
			Help:      "Total number of per-subscriber pushes, by outcome.",
		}, []string{"outcome"}),
		WriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "write_failures_total",
			Help:      "Total number of failed subscriber writes.",
		}),
		WriteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "write_duration_seconds",
			Help:      "Time spent writing one frame to a subscriber.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}),
		CommandQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "command_queue_depth",
			Help:      "Commands waiting for the relay loop.",
		}),
		Panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "panics_total",
			Help:      "Total number of recovered panics in the relay.",
		}),
	}

	reg.MustRegister(m.Subscribers, m.Submissions, m.Pushes, m.WriteFailures,
		m.WriteDuration, m.CommandQueueDepth, m.Panics)
	return m
}

func (m *RelayMetrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.Subscribers.Set(float64(n))
}

func (m *RelayMetrics) Submitted() {
	if m == nil {
		return
	}
	m.Submissions.Inc()
}

func (m *RelayMetrics) Push(outcome string) {
	if m == nil {
		return
	}
	m.Pushes.WithLabelValues(outcome).Inc()
}

func (m *RelayMetrics) WriteFailed() {
	if m == nil {
		return
	}
	m.WriteFailures.Inc()
}

func (m *RelayMetrics) ObserveWrite(d time.Duration) {
	if m == nil {
		return
	}
	m.WriteDuration.Observe(d.Seconds())
}

func (m *RelayMetrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.CommandQueueDepth.Set(float64(n))
}

func (m *RelayMetrics) Panicked() {
	if m == nil {
		return
	}
	m.Panics.Inc()
}

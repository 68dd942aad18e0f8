package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registrar collectors.  A nil *Metrics is a valid no-op
// so tests and tools can skip instrumentation.
type Metrics struct {
	SessionOutcomes *prometheus.CounterVec
	StoreAttempts   *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
	PrunedTasks     prometheus.Counter
	SessionDuration prometheus.Histogram
}

// New registers the collectors on reg.  Use a fresh prometheus.NewRegistry
// per server (and per test) to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SessionOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_session_outcomes_total",
			Help: "Change sessions by terminal outcome",
		}, []string{"outcome"}),
		StoreAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_store_attempts_total",
			Help: "Record store calls made by change sessions, by operation and result",
		}, []string{"op", "result"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_notifications_total",
			Help: "Notification dispatch results",
		}, []string{"status"}),
		PrunedTasks: f.NewCounter(prometheus.CounterOpts{
			Name: "registrar_notifications_pruned_total",
			Help: "Finished notification tasks removed by the retention pruner",
		}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "registrar_session_duration_seconds",
			Help:    "Time from submit to terminal state",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ObserveOutcome(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.SessionOutcomes.WithLabelValues(outcome).Inc()
	m.SessionDuration.Observe(d.Seconds())
}

func (m *Metrics) StoreAttempt(op, result string) {
	if m == nil {
		return
	}
	m.StoreAttempts.WithLabelValues(op, result).Inc()
}

func (m *Metrics) Notification(status string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(status).Inc()
}

func (m *Metrics) Pruned(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.PrunedTasks.Add(float64(n))
}

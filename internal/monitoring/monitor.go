package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names kept in the in-memory snapshot
const (
	MetricTurns           = "turns"
	MetricCompletionError = "completion_errors"
	MetricParseError      = "parse_errors"
	MetricItemsAdded      = "items_added"
	MetricSessions        = "sessions"
	MetricLastSession     = "last_session_id"
	MetricLastOrder       = "last_order"
)

// Monitor counts what happens during ordering sessions. Counters are kept both
// as a plain snapshot and as Prometheus collectors on a private registry.
type Monitor struct {
	metrics      map[string]interface{}
	metricsMutex sync.RWMutex
	startTime    time.Time

	registry   *prometheus.Registry
	turns      *prometheus.CounterVec
	failures   *prometheus.CounterVec
	itemsAdded *prometheus.CounterVec
	sessions   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewMonitor creates a new monitoring instance
func NewMonitor() *Monitor {
	m := &Monitor{
		metrics:   make(map[string]interface{}),
		startTime: time.Now(),
		registry:  prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maitred_turns_total",
				Help: "User turns sent to the completion service",
			},
			[]string{"policy"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maitred_turn_failures_total",
				Help: "Turns answered with the apology instead of a model reply",
			},
			[]string{"policy", "kind"},
		),
		itemsAdded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maitred_order_items_added_total",
				Help: "Items appended to customer orders",
			},
			[]string{"policy"},
		),
		sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maitred_sessions_total",
				Help: "Finished ordering sessions",
			},
			[]string{"outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "maitred_completion_seconds",
				Help:    "Time spent waiting for the completion service",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"policy"},
		),
	}

	m.registry.MustRegister(m.turns, m.failures, m.itemsAdded, m.sessions, m.latency)
	return m
}

// Registry exposes the Prometheus registry for an HTTP handler
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// RecordMetric records a metric value
func (m *Monitor) RecordMetric(name string, value interface{}) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	m.metrics[name] = value
}

// GetMetric returns a specific metric value
func (m *Monitor) GetMetric(name string) (interface{}, bool) {
	m.metricsMutex.RLock()
	defer m.metricsMutex.RUnlock()
	value, exists := m.metrics[name]
	return value, exists
}

// GetMetrics returns all current metrics
func (m *Monitor) GetMetrics() map[string]interface{} {
	m.metricsMutex.RLock()
	defer m.metricsMutex.RUnlock()

	metrics := make(map[string]interface{}, len(m.metrics)+1)
	for k, v := range m.metrics {
		metrics[k] = v
	}

	metrics["uptime_seconds"] = time.Since(m.startTime).Seconds()

	return metrics
}

// Reset clears the snapshot. Prometheus counters are monotonic and are not reset.
func (m *Monitor) Reset() {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	m.metrics = make(map[string]interface{})
}

// RecordTurn counts a turn sent to the model and how long the reply took
func (m *Monitor) RecordTurn(policy string, elapsed time.Duration) {
	m.turns.WithLabelValues(policy).Inc()
	m.latency.WithLabelValues(policy).Observe(elapsed.Seconds())
	m.increment(MetricTurns, 1)
}

// RecordFailure counts a turn that fell back to the apology. kind is
// MetricCompletionError or MetricParseError.
func (m *Monitor) RecordFailure(policy, kind string) {
	m.failures.WithLabelValues(policy, kind).Inc()
	m.increment(kind, 1)
}

// RecordItemsAdded counts items a policy appended to the order
func (m *Monitor) RecordItemsAdded(policy string, n int) {
	if n <= 0 {
		return
	}
	m.itemsAdded.WithLabelValues(policy).Add(float64(n))
	m.increment(MetricItemsAdded, n)
}

// RecordSession counts a finished session. outcome is "ordered" or "empty".
func (m *Monitor) RecordSession(outcome string) {
	m.sessions.WithLabelValues(outcome).Inc()
	m.increment(MetricSessions, 1)
}

func (m *Monitor) increment(name string, n int) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	current, _ := m.metrics[name].(int)
	m.metrics[name] = current + n
}

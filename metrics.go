// metrics.go
// -----------
// Optional prometheus instrumentation for the pipeline. A nil *Metrics is
// valid everywhere and counts nothing, so the default client stays free of
// any registry.
package edgeclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	attempts    *prometheus.CounterVec
	retries     prometheus.Counter
	rejections  *prometheus.CounterVec
	throttleSec prometheus.Counter
	transitions *prometheus.CounterVec
}

// NewMetrics registers the pipeline's counters with reg. Pass
// prometheus.DefaultRegisterer to use the process-global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "edgeclient_attempts_total",
			Help: "Physical request attempts, including retries.",
		}, []string{"method"}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Name: "edgeclient_retries_total",
			Help: "Attempts re-issued after a retryable failure.",
		}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "edgeclient_rejections_total",
			Help: "Calls rejected before reaching the transport.",
		}, []string{"reason"}),
		throttleSec: factory.NewCounter(prometheus.CounterOpts{
			Name: "edgeclient_throttle_seconds_total",
			Help: "Time spent in proactive quota throttling.",
		}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "edgeclient_circuit_transitions_total",
			Help: "Circuit breaker state transitions.",
		}, []string{"to"}),
	}
}

func (m *Metrics) attemptRecorded(method string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(method).Inc()
}

func (m *Metrics) retryRecorded() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) rejectionRecorded(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) throttleRecorded(d time.Duration) {
	if m == nil {
		return
	}
	m.throttleSec.Add(d.Seconds())
}

func (m *Metrics) breakerTransition(to circuitState) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to.String()).Inc()
}

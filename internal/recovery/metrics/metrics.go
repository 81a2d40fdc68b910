package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	AttemptsTotal     *prometheus.CounterVec
	SuccessesTotal    *prometheus.CounterVec
	DeadLetteredTotal prometheus.Counter
	QueueDepth        prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		AttemptsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "probo_recovery_attempts_total",
			Help: "Total recovery attempts by strategy",
		}, []string{"strategy"}),
		SuccessesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "probo_recovery_successes_total",
			Help: "Total successful recoveries by strategy",
		}, []string{"strategy"}),
		DeadLetteredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "probo_recovery_dead_lettered_total",
			Help: "Total recovery tasks parked after exhausting attempts",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "probo_recovery_queue_depth",
			Help: "Current number of queued recovery tasks",
		}),
	}
}

func (m *Metrics) ObserveAttempt(strategy string, success bool) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(strategy).Inc()
	if success {
		m.SuccessesTotal.WithLabelValues(strategy).Inc()
	}
}

func (m *Metrics) ObserveDeadLetter() {
	if m != nil {
		m.DeadLetteredTotal.Inc()
	}
}

func (m *Metrics) SetQueueDepth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}

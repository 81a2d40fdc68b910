package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SecurityScore        prometheus.Gauge
	ComplianceScore      prometheus.Gauge
	ThreatsDetected      *prometheus.CounterVec
	AdvancementsRecorded prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		SecurityScore: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "probo_security_score",
			Help: "Current security score in [0,100]",
		}),
		ComplianceScore: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "probo_compliance_score",
			Help: "Current compliance score in [0,100]",
		}),
		ThreatsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "probo_security_threats_detected_total",
			Help: "Total threats detected by severity",
		}, []string{"severity"}),
		AdvancementsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "probo_security_advancements_recorded_total",
			Help: "Total advisory security advancements recorded",
		}),
	}
}

func (m *Metrics) SetSecurityScore(score float64) {
	if m != nil {
		m.SecurityScore.Set(score)
	}
}

func (m *Metrics) SetComplianceScore(score float64) {
	if m != nil {
		m.ComplianceScore.Set(score)
	}
}

func (m *Metrics) ObserveThreat(severity string) {
	if m != nil {
		m.ThreatsDetected.WithLabelValues(severity).Inc()
	}
}

func (m *Metrics) ObserveAdvancement() {
	if m != nil {
		m.AdvancementsRecorded.Inc()
	}
}

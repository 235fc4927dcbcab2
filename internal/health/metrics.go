package health

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports probe timings and the last readiness verdict.
type Metrics struct {
	probeDuration *prometheus.HistogramVec
	ready         prometheus.Gauge
}

// NewMetrics creates and registers the health collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		probeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "gantry_health_probe_duration_seconds",
				Help: "Duration of dependency health probes",
			},
			[]string{"dependency"},
		),
		ready: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gantry_ready",
			Help: "1 if the last readiness check reported ready, 0 otherwise",
		}),
	}
	reg.MustRegister(m.probeDuration, m.ready)
	return m
}

func (m *Metrics) observe(dependency string, d time.Duration) {
	if m == nil {
		return
	}
	m.probeDuration.WithLabelValues(dependency).Observe(d.Seconds())
}

func (m *Metrics) setReady(ready bool) {
	if m == nil {
		return
	}
	if ready {
		m.ready.Set(1)
	} else {
		m.ready.Set(0)
	}
}

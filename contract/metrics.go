package contract

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts decode outcomes. A nil *Metrics records nothing.
type Metrics struct {
	decodes *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "abiscope",
			Name:      "decode_total",
			Help:      "Decoded calls and logs by source and outcome.",
		}, []string{"target", "source", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.decodes)
	}
	return m
}

func (m *Metrics) Collector() prometheus.Collector {
	return m.decodes
}

func (m *Metrics) observe(target string, source Source, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	if source == "" {
		source = "none"
	}
	m.decodes.WithLabelValues(target, string(source), outcome).Inc()
}

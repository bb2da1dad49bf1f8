package instances

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution sources, used as metric labels and binding kinds.
const (
	sourceFactory  = "factory"
	sourceResolver = "resolver"
	sourceConfig   = "config"
	sourceMiss     = "miss"
)

// Metrics counts capability resolutions by the source that served them.
type Metrics struct {
	Resolutions *prometheus.CounterVec
}

// NewMetrics registers the registry metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Resolutions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "entitykit_instances_resolutions_total",
			Help: "Capability resolutions by source (factory, resolver, config, miss)",
		}, []string{"source"}),
	}
}

func (m *Metrics) observe(source string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(source).Inc()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tech-arch1tect/gymportal/config"
	"go.uber.org/fx"
)

// ProvideMetrics returns nil when metrics are disabled; callers rely on the
// nil-safe recorders.
func ProvideMetrics(cfg *config.Config) *Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return New(reg)
}

var Module = fx.Options(
	fx.Provide(ProvideMetrics),
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

// Module provides the prometheus registry and engine instruments.
var Module = fx.Module("observability.metrics",
	fx.Provide(func() *prometheus.Registry {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		return reg
	}),
	fx.Provide(func(reg *prometheus.Registry) prometheus.Registerer { return reg }),
	fx.Provide(New),
)

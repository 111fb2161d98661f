// Package observability wires tracing and metrics into the fx graph.
package observability

import (
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"github.com/mediflow/billing/internal/config"
	"github.com/mediflow/billing/internal/observability/metrics"
	"github.com/mediflow/billing/internal/observability/tracing"
)

const serviceName = "mediflow"

var Module = fx.Module("observability",
	fx.Provide(func(cfg config.Config) tracing.Config {
		return tracing.Config{
			Enabled:          cfg.Tracing.Enabled,
			ServiceName:      serviceName,
			ServiceVersion:   "dev",
			Environment:      cfg.Environment,
			ExporterEndpoint: cfg.Tracing.ExporterEndpoint,
			ExporterProtocol: cfg.Tracing.ExporterProtocol,
			SamplingRatio:    cfg.Tracing.SamplingRatio,
		}
	}),
	fx.Provide(tracing.NewProvider),
	fx.Provide(func(cfg config.Config) metrics.Config {
		return metrics.Config{
			ServiceName: serviceName,
			Environment: cfg.Environment,
		}
	}),
	fx.Provide(func(cfg metrics.Config) *metrics.BillingMetrics {
		return metrics.BillingWithConfig(cfg)
	}),
	fx.Provide(func(cfg metrics.Config) (*metrics.HTTPMetrics, error) {
		return metrics.NewHTTPMetrics(cfg, otel.GetMeterProvider())
	}),
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)

package tracer

import (
	"context"

	"discovery-client/internal/config"
	"discovery-client/internal/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// ShutdownFunc flushes pending spans.
type ShutdownFunc func(context.Context) error

func noop(context.Context) error { return nil }

// InitTracer installs a global OTLP HTTP tracer provider. Session and
// controller spans are dropped unless tracing is enabled.
func InitTracer(cfg config.TracingConfig, environment string, log logger.ILogger) ShutdownFunc {
	if !cfg.Enabled {
		log.Info("TRACER", "Tracing disabled", map[string]interface{}{"hint": "set OTEL_ENABLED=true"})
		return noop
	}

	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		log.Warn("TRACER", "Failed to create OTLP exporter, tracing disabled", map[string]interface{}{"error": err.Error()})
		return noop
	}

	tp := NewProvider(cfg, environment, sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)

	log.Info("TRACER", "Tracer initialized", map[string]interface{}{
		"endpoint":     cfg.Endpoint,
		"service":      cfg.ServiceName,
		"version":      cfg.ServiceVersion,
		"sample_ratio": cfg.SampleRatio,
	})
	return tp.Shutdown
}

// NewProvider builds the provider with the service resource and a
// parent-based ratio sampler, so a sampled request keeps its session spans.
func NewProvider(cfg config.TracingConfig, environment string, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	opts = append(opts,
		sdktrace.WithResource(Resource(cfg, environment)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	return sdktrace.NewTracerProvider(opts...)
}

func Resource(cfg config.TracingConfig, environment string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentKey.String(environment),
	)
}

package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TracingConfig selects where spans go. An empty Endpoint keeps spans in-process:
// trace IDs are still generated and propagated, nothing is exported.
type TracingConfig struct {
	Endpoint    string
	ServiceName string
}

var (
	tracerProviderMu sync.Mutex
	tracerProvider   *sdktrace.TracerProvider
)

// InitTracing installs a global TracerProvider and W3C propagator. Call once from main;
// FlushTelemetry shuts the provider down.
func InitTracing(ctx context.Context, cfg TracingConfig) error {
	name := cfg.ServiceName
	if name == "" {
		name = "weather-lookup"
	}
	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", name)))
	if err != nil {
		return fmt.Errorf("tracing resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.Endpoint != "" {
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("otlp trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tracerProviderMu.Lock()
	prev := tracerProvider
	tracerProvider = tp
	tracerProviderMu.Unlock()
	if prev != nil {
		_ = prev.Shutdown(ctx)
	}
	return nil
}

// shutdownTracing flushes pending spans and stops the provider installed by InitTracing.
func shutdownTracing(ctx context.Context) error {
	tracerProviderMu.Lock()
	tp := tracerProvider
	tracerProvider = nil
	tracerProviderMu.Unlock()
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

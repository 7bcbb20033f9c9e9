package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	mu       sync.RWMutex
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
)

// Config contains tracing configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// SamplingRate in [0, 1]; 0 disables sampling.
	SamplingRate float64
	// Writer receives the stdout exporter output. Nil means os.Stderr.
	Writer      io.Writer
	PrettyPrint bool
	// Exporter replaces the stdout exporter when set.
	Exporter sdktrace.SpanExporter
}

// DefaultConfig returns a configuration that samples every span and writes
// them to stderr, out of the way of data written to stdout.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "asciidata",
		ServiceVersion: "dev",
		Environment:    getEnv("ASCIIDATA_ENVIRONMENT", "development"),
		SamplingRate:   1.0,
	}
}

// Init installs a tracer provider as the global otel provider. Calling it
// again replaces the previous provider after shutting it down.
func Init(cfg Config) error {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter := cfg.Exporter
	if exporter == nil {
		w := cfg.Writer
		if w == nil {
			w = os.Stderr
		}
		opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
		if cfg.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err = stdouttrace.New(opts...)
		if err != nil {
			return fmt.Errorf("failed to create stdout exporter: %w", err)
		}
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SamplingRate <= 0:
		sampler = sdktrace.NeverSample()
	case cfg.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter),
	)

	mu.Lock()
	previous := provider
	provider = tp
	tracer = tp.Tracer(cfg.ServiceName)
	mu.Unlock()

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if previous != nil {
		return previous.Shutdown(context.Background())
	}
	return nil
}

// Tracer returns the installed tracer, or the global otel tracer (a no-op
// until a provider is installed).
func Tracer() trace.Tracer {
	mu.RLock()
	defer mu.RUnlock()
	if tracer != nil {
		return tracer
	}
	return otel.Tracer("asciidata")
}

// Flush exports all finished spans.
func Flush(ctx context.Context) error {
	mu.RLock()
	tp := provider
	mu.RUnlock()
	if tp == nil {
		return nil
	}
	return tp.ForceFlush(ctx)
}

// Shutdown flushes and stops the tracer provider.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	tp := provider
	provider = nil
	tracer = nil
	mu.Unlock()

	if tp == nil {
		return nil
	}
	if err := tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

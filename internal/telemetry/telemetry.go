// Package telemetry wires otel tracing and metrics for the notarization
// pipeline. The notarization service starts one span per Notarize call;
// the individual pipeline stages do not get spans of their own.
// There is no external collector here — stdout exporters are enough to
// make notarization latency and errors visible in operator logs
// without depending on a running otel-collector for the gateway to work.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/summitto/tlsn-prover-gateway/internal/config"
)

// metricExportInterval is how often the stdout metric reader dumps the
// current instrument values. Prometheus scraping is the primary metrics
// surface (via /metrics); this periodic stdout dump is a secondary,
// collector-free view for local operation, the same "no collector
// required" rationale as the trace exporter above.
const metricExportInterval = 30 * time.Second

// Shutdown flushes and releases the tracer provider. Callers should defer
// it at process exit; a zero-value no-op is returned when tracing is
// disabled so call sites never need a nil check.
type Shutdown func(context.Context) error

var noopShutdown Shutdown = func(context.Context) error { return nil }

// Setup installs a global TracerProvider and MeterProvider per cfg. When
// cfg.Enabled is false, the global no-op providers otel ships by default
// are left in place and Setup returns a no-op Shutdown.
func Setup(cfg config.TracingConfig) (Shutdown, error) {
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "tlsn-prover-gateway"
	}

	res, err := resource.Merge(resource.Default(),
		resource.NewSchemaless(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: building resource: %w", err)
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating stdout trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricExporter, err := stdoutmetric.New()
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating stdout metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(metricExportInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		traceErr := tp.Shutdown(ctx)
		metricErr := mp.Shutdown(ctx)
		if traceErr != nil {
			return traceErr
		}
		return metricErr
	}, nil
}

// Tracer returns the named tracer off the currently installed global
// TracerProvider — a no-op tracer when tracing is disabled.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Meter returns the named meter off the currently installed global
// MeterProvider — a no-op meter when tracing is disabled.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Package telemetry wraps OpenTelemetry tracing around block attempts
// and chunk execution, configured by config.TelemetryConfig. Grounded
// on the pack's gomind telemetry provider (NewOTelProvider): an
// OTLP/HTTP batch span exporter behind a small StartSpan/Shutdown
// surface, trimmed to tracing only since tac has no metrics concept in
// its spec.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts spans around processor attempts and orchestrator
// chunks. The zero value is a safe no-op: StartSpan returns the
// context unmodified and a span whose End is a no-op, so callers never
// need a nil check.
type Tracer struct {
	tracer trace.Tracer
	tp     *sdktrace.TracerProvider
}

// New builds a Tracer from config.TelemetryConfig. Disabled or
// "noop"-protocol configuration yields a Tracer backed by
// trace.NewNoopTracerProvider, so the call site never branches on
// whether telemetry is on.
func New(serviceName string, enabled bool, endpoint, protocol string) (*Tracer, error) {
	if !enabled || protocol == "noop" {
		return &Tracer{tracer: trace.NewNoopTracerProvider().Tracer(serviceName)}, nil
	}
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	ctx := context.Background()
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter for %s: %w", endpoint, err)
	}

	res := resource.NewWithAttributes(
		"https://opentelemetry.io/schemas/1.17.0",
		attribute.String("service.name", serviceName),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Tracer{tracer: tp.Tracer(serviceName), tp: tp}, nil
}

// StartSpan starts a span. Callers defer span.End().
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// Shutdown flushes and stops the underlying trace provider, if one was
// created. No-op for a noop/disabled Tracer.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.tp == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return t.tp.Shutdown(shutdownCtx)
}

// Package telemetry provides the OpenTelemetry tracer this deployer
// spans deploy/destroy runs and their per-layer steps with, exported to
// whichever backend the Config's Exporter names.
//
// Grounded on the teacher's internal/telemetry/telemetry.go (Config
// shape, Initialize/Shutdown lifecycle, StartSpan) and
// internal/observability/tracing/telemetry.go (resource.Merge with
// semconv attributes, TraceIDRatioBased sampling) — collapsed to
// tracing only, since internal/metrics already owns this module's
// Prometheus metrics rather than splitting them across both packages.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// Exporter selects which backend a Provider's spans are sent to.
type Exporter string

const (
	ExporterStdout Exporter = "stdout"
	ExporterOTLP   Exporter = "otlp"
	ExporterJaeger Exporter = "jaeger"
)

// Config configures a Provider. ServiceVersion and Environment are
// attached to every span as resource attributes.
type Config struct {
	Exporter       Exporter
	Endpoint       string
	ServiceVersion string
	Environment    string
	SampleRate     float64
}

// Provider wraps an sdktrace.TracerProvider. A nil *Provider is a safe
// no-op: every method degrades to the global no-op tracer rather than
// panicking, the same pattern internal/notify's *Mailer and
// internal/metrics's *Metrics use.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

// New builds a Provider for serviceName using cfg's exporter choice.
// An empty cfg.SampleRate defaults to always-on sampling, appropriate
// for a CLI that runs one deploy/destroy per invocation rather than a
// high-QPS service.
func New(ctx context.Context, serviceName string, cfg Config) (*Provider, error) {
	exp, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("telemetry: building %s exporter: %w", cfg.Exporter, err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: building resource: %w", err)
	}

	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 1.0
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(rate)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tp: tp, tracer: tp.Tracer(serviceName)}, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case ExporterOTLP:
		return otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.Endpoint))
	case ExporterJaeger:
		return jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.Endpoint)))
	case "", ExporterStdout:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("telemetry: unknown exporter %q", cfg.Exporter)
	}
}

// Start begins a span named name, scoped to a layer/provider/action,
// the attributes every deploy/destroy span carries.
func (p *Provider) Start(ctx context.Context, name string, layer, provider, action string) (context.Context, trace.Span) {
	if p == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return p.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("twin.layer", layer),
		attribute.String("twin.provider", provider),
		attribute.String("twin.action", action),
	))
}

// End closes span, marking it failed with err's message when non-nil.
func End(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	span.End()
}

// Shutdown flushes and stops the tracer provider. Safe to call on a
// nil Provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

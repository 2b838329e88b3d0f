package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/clusterkit/kmeans"

// TracingConfig controls whether and how a run emits spans.
type TracingConfig struct {
	Enabled     bool
	Exporter    string // "stdout" or "none"
	ServiceName string
	SampleRate  float64
}

// DefaultTracingConfig returns tracing defaults (disabled).
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		Enabled:     false,
		Exporter:    "none",
		ServiceName: "kmeansd",
		SampleRate:  1.0,
	}
}

// Tracer wraps an OpenTelemetry TracerProvider and exposes span
// helpers for each phase of a clustering run, matching the boundaries
// at which a run may be cancelled. kmeans.Engine.Run does not call
// them, so a run emits no spans unless its caller starts them.
type Tracer struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

// InitTracer sets up the TracerProvider from cfg. The returned Tracer
// must be shut down with Shutdown.
func InitTracer(ctx context.Context, cfg TracingConfig) (*Tracer, error) {
	if !cfg.Enabled || cfg.Exporter == "none" || cfg.Exporter == "" {
		return &Tracer{tracer: trace.NewNoopTracerProvider().Tracer(tracerName)}, nil
	}

	var exporter sdktrace.SpanExporter
	var err error
	switch cfg.Exporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("observability: creating stdout exporter: %w", err)
		}
	default:
		return nil, fmt.Errorf("observability: unsupported trace exporter %q (supported: stdout, none)", cfg.Exporter)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion("0.1.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: creating resource: %w", err)
	}

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRate < 1.0 {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Tracer{tp: tp, tracer: tp.Tracer(tracerName)}, nil
}

// Shutdown flushes pending spans.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.tp == nil {
		return nil
	}
	return t.tp.Shutdown(ctx)
}

// StartRun creates the root span for a clustering run.
func (t *Tracer) StartRun(ctx context.Context, relation string, k int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "kmeans.run",
		trace.WithAttributes(
			attribute.String("kmeans.relation", relation),
			attribute.Int("kmeans.k", k),
		),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartIngest creates a span for the ingest phase.
func (t *Tracer) StartIngest(ctx context.Context) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "kmeans.ingest")
}

// StartSeed creates a span for the centroid seeding phase.
func (t *Tracer) StartSeed(ctx context.Context, initMethod string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "kmeans.seed",
		trace.WithAttributes(attribute.String("kmeans.init_method", initMethod)),
	)
}

// StartLloyd creates a span covering the full assign/update iteration
// loop.
func (t *Tracer) StartLloyd(ctx context.Context, maxIter int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "kmeans.lloyd",
		trace.WithAttributes(attribute.Int("kmeans.max_iter", maxIter)),
	)
}

// StartIteration creates a span for a single assign+update pass.
func (t *Tracer) StartIteration(ctx context.Context, iter int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "kmeans.lloyd.iteration",
		trace.WithAttributes(attribute.Int("kmeans.iteration", iter)),
	)
}

// StartEvaluate creates a span for the cost/silhouette evaluation
// phase.
func (t *Tracer) StartEvaluate(ctx context.Context) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "kmeans.evaluate")
}

// RecordRunResult annotates the run's root span with its outcome.
func RecordRunResult(span trace.Span, iterations int, cost float64, silhouette *float64, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.Int("kmeans.iterations_run", iterations),
		attribute.Float64("kmeans.cost", cost),
		attribute.Int64("kmeans.duration_ms", duration.Milliseconds()),
	}
	if silhouette != nil {
		attrs = append(attrs, attribute.Float64("kmeans.silhouette", *silhouette))
	}
	span.SetAttributes(attrs...)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetAttributes(attribute.Bool("error", true))
}

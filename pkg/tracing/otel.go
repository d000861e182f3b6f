// Package tracing sets up the OpenTelemetry tracer (Jaeger exporter) and
// provides the observer that turns engine events into spans.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/snow-ghost/strategist/core"
)

// Tracer wraps the OpenTelemetry tracer and its provider.
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// Config holds tracing configuration.
type Config struct {
	ServiceName    string `json:"service_name" yaml:"service_name"`
	ServiceVersion string `json:"service_version" yaml:"service_version"`
	JaegerEndpoint string `json:"jaeger_endpoint" yaml:"jaeger_endpoint"`
	Environment    string `json:"environment" yaml:"environment"`
}

// NewTracer creates an OpenTelemetry tracer exporting to Jaeger and installs
// it as the global provider.
func NewTracer(config Config) (*Tracer, error) {
	if config.ServiceName == "" {
		config.ServiceName = "strategist"
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(config.JaegerEndpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Tracer{
		tracer:   otel.Tracer(config.ServiceName),
		provider: tp,
	}, nil
}

// StartSpan starts a new span.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// StartSearchSpan starts the root span for one search run.
func (t *Tracer) StartSearchSpan(ctx context.Context, problemType string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "search", trace.WithAttributes(
		attribute.String("search.problem_type", problemType),
	))
}

// Shutdown flushes and stops the tracer provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

// Observer returns a core.Observer bound to one search run: one span for the
// search, one child span per iteration. It is not safe to share across
// concurrent searches.
func (t *Tracer) Observer(ctx context.Context, problemType string) *Observer {
	return &Observer{tracer: t, root: ctx, problemType: problemType}
}

// Observer implements core.Observer with spans.
type Observer struct {
	tracer      *Tracer
	root        context.Context
	problemType string

	searchCtx  context.Context
	searchSpan trace.Span
	iterSpan   trace.Span
}

func (o *Observer) OnEvent(e core.Event) {
	switch e.Kind {
	case core.EventSearchStart:
		o.searchCtx, o.searchSpan = o.tracer.StartSearchSpan(o.root, o.problemType)
	case core.EventIterationStart:
		o.endIteration()
		parent := o.searchCtx
		if parent == nil {
			parent = o.root
		}
		_, o.iterSpan = o.tracer.tracer.Start(parent, "search.iteration",
			trace.WithAttributes(attribute.Int("iteration", e.Iteration)))
	case core.EventNodesExpanded:
		if o.iterSpan != nil {
			o.iterSpan.SetAttributes(
				attribute.String("expansion.node_id", e.NodeID),
				attribute.Int("expansion.children", e.Children),
				attribute.Int("expansion.tokens", e.Tokens),
			)
		}
	case core.EventSimulationEnd:
		if o.iterSpan != nil {
			o.iterSpan.SetAttributes(
				attribute.String("simulation.node_id", e.NodeID),
				attribute.Float64("simulation.reward", e.Reward),
				attribute.Int("simulation.tokens", e.Tokens),
			)
		}
	case core.EventSearchEnd:
		o.endIteration()
		if o.searchSpan == nil {
			return
		}
		o.searchSpan.SetAttributes(
			attribute.String("search.state", e.State),
			attribute.Int("search.iterations", e.Iteration),
			attribute.Int("search.tokens", e.Tokens),
			attribute.Float64("search.cost_usd", e.CostUSD),
		)
		if e.Err != nil {
			o.searchSpan.RecordError(e.Err)
			o.searchSpan.SetStatus(codes.Error, e.Err.Error())
		} else {
			o.searchSpan.SetStatus(codes.Ok, "")
		}
		o.searchSpan.End()
		o.searchSpan = nil
	}
}

func (o *Observer) endIteration() {
	if o.iterSpan != nil {
		o.iterSpan.End()
		o.iterSpan = nil
	}
}

// GetTraceID extracts the trace id from a context, or "" when absent.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name used for coach spans.
const TracerName = "llmcoach"

// OTLP transports.
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http"
)

// TracingConfig contains configuration for OpenTelemetry tracing.
type TracingConfig struct {
	Enabled        bool
	Protocol       string // grpc (default) or http
	Endpoint       string // host:port, e.g. "localhost:4317" for gRPC, "localhost:4318" for HTTP
	ServiceName    string
	ServiceVersion string
	SampleRate     float64 // 0.0 to 1.0, applied to root spans only
	Insecure       bool
	Headers        map[string]string
}

// DefaultTracingConfig returns the disabled local-collector setup.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		Endpoint:    "localhost:4317",
		ServiceName: TracerName,
		SampleRate:  1.0,
		Insecure:    true,
	}
}

// TracerProvider wraps the OpenTelemetry tracer provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing exports coach spans over OTLP gRPC or HTTP. When disabled the global
// (no-op by default) tracer is used and nothing is registered.
func InitTracing(ctx context.Context, cfg TracingConfig) (*TracerProvider, error) {
	if !cfg.Enabled {
		return &TracerProvider{tracer: otel.Tracer(TracerName)}, nil
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res, err := serviceResource(ctx, cfg)
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(turnSampler(cfg.SampleRate)),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{provider: provider, tracer: provider.Tracer(TracerName)}, nil
}

// newExporter builds the OTLP span exporter for cfg.Protocol.
func newExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch cfg.Protocol {
	case "", ProtocolGRPC:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	case ProtocolHTTP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported tracing protocol %q", cfg.Protocol)
	}
	if err != nil {
		return nil, fmt.Errorf("otlp %s exporter: %w", cfg.Protocol, err)
	}
	return exporter, nil
}

func serviceResource(ctx context.Context, cfg TracingConfig) (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = TracerName
	}
	attrs := []attribute.KeyValue{semconv.ServiceName(name)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(attrs...),
	)
}

// turnSampler samples whole turns: the rate decides at the root span and
// model and dispatch children follow their parent.
func turnSampler(rate float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case rate >= 1.0:
		root = sdktrace.AlwaysSample()
	case rate <= 0.0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(rate)
	}
	return sdktrace.ParentBased(root)
}

// Tracer returns the tracer instance.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// Shutdown gracefully shuts down the tracer provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

// StartTurnSpan starts the root span of a chat turn.
func StartTurnSpan(ctx context.Context, tracer trace.Tracer, userID string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "coach.turn", trace.WithSpanKind(trace.SpanKindServer))
	span.SetAttributes(attribute.String("coach.user_id", userID))
	if id := TurnIDFromContext(ctx); id != "" {
		span.SetAttributes(attribute.String("coach.turn_id", id))
	}
	return ctx, span
}

// StartModelSpan starts a span for one model call.
func StartModelSpan(ctx context.Context, tracer trace.Tracer, provider, phase string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "coach.model."+phase,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.system", provider),
			attribute.String("coach.phase", phase),
		),
	)
}

// StartDispatchSpan starts a span for a function dispatch.
func StartDispatchSpan(ctx context.Context, tracer trace.Tracer, function string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "coach.dispatch",
		trace.WithAttributes(attribute.String("coach.function", function)),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

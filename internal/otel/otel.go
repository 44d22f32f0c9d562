package otel

import (
	"context"
	"sync"

	eventbus "github.com/bilby91/graphql-guard/internal/eventbus"
	events "github.com/bilby91/graphql-guard/internal/events"
	reqid "github.com/bilby91/graphql-guard/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	sub := &subscriber{tracer: otel.Tracer("graphql-guard")}
	sub.register()

	return tp.Shutdown, nil
}

type subscriber struct {
	tracer    trace.Tracer
	httpSpans sync.Map // rid -> trace.Span
	gqlSpans  sync.Map // rid -> trace.Span
}

// activeSpan finds the request's GraphQL span, falling back to the HTTP
// span for events fired outside operation execution (mask planning).
func (s *subscriber) activeSpan(ctx context.Context) (trace.Span, bool) {
	rid, _ := reqid.FromContext(ctx)
	if v, ok := s.gqlSpans.Load(rid); ok {
		return v.(trace.Span), true
	}
	if v, ok := s.httpSpans.Load(rid); ok {
		return v.(trace.Span), true
	}
	return nil, false
}

func (s *subscriber) register() {
	eventbus.Subscribe(func(ctx context.Context, e events.HTTPStart) {
		rid, _ := reqid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "http.request")
		span.SetAttributes(
			semconv.HTTPMethodKey.String(e.Request.Method),
			attribute.String("http.target", e.Request.URL.Path),
		)
		s.httpSpans.Store(rid, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.httpSpans.LoadAndDelete(rid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.GraphQLStart) {
		rid, _ := reqid.FromContext(ctx)
		parent := ctx
		if v, ok := s.httpSpans.Load(rid); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
		}
		_, span := s.tracer.Start(parent, "graphql.operation")
		span.SetAttributes(
			attribute.String("graphql.operation.name", e.OperationName),
			attribute.String("graphql.operation.type", e.OperationType),
		)
		s.gqlSpans.Store(rid, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.gqlSpans.LoadAndDelete(rid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(attribute.Int("graphql.error_count", len(e.Errors)))
		if e.Aborted {
			span.SetStatus(codes.Error, "request aborted")
		}
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.GuardDenied) {
		span, ok := s.activeSpan(ctx)
		if !ok {
			return
		}
		attrs := []attribute.KeyValue{
			attribute.String("graphql.authz.type", e.TypeName),
			attribute.String("graphql.authz.field", e.FieldName),
			attribute.String("graphql.authz.mode", e.Mode),
			attribute.String("graphql.authz.path", e.Path),
		}
		if e.ArgumentName != "" {
			attrs = append(attrs, attribute.String("graphql.authz.argument", e.ArgumentName))
		}
		span.AddEvent("authz.denied", trace.WithAttributes(attrs...))
	})

	eventbus.Subscribe(func(ctx context.Context, e events.GuardEvalError) {
		span, ok := s.activeSpan(ctx)
		if !ok {
			return
		}
		span.RecordError(e.Err, trace.WithAttributes(
			attribute.String("graphql.authz.type", e.TypeName),
			attribute.String("graphql.authz.field", e.FieldName),
		))
	})

	eventbus.Subscribe(func(ctx context.Context, e events.MaskPlanned) {
		span, ok := s.activeSpan(ctx)
		if !ok {
			return
		}
		span.AddEvent("authz.mask_planned", trace.WithAttributes(
			attribute.Int("graphql.authz.hidden_fields", e.HiddenFields),
			attribute.Int("graphql.authz.hidden_arguments", e.HiddenArguments),
			attribute.Int64("graphql.authz.plan_micros", e.Duration.Microseconds()),
		))
	})
}

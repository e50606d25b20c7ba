package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// RequestSpan is the client span of one issued request.
type RequestSpan struct {
	span trace.Span
}

// StartRequest starts a client span named after the HTTP method. On a
// disabled provider the span is a no-op.
func (p *Provider) StartRequest(ctx context.Context, method, target string) (context.Context, RequestSpan) {
	ctx, span := p.tracerOrNoop().Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(method),
			semconv.URLFull(target),
		),
	)
	return ctx, RequestSpan{span: span}
}

// Inject writes the W3C trace context of ctx into h when propagation is on.
func (p *Provider) Inject(ctx context.Context, h http.Header) {
	if !p.ShouldPropagate() {
		return
	}
	p.propagator.Inject(ctx, propagation.HeaderCarrier(h))
}

// End records the response status and, for failures, the error kind and error.
func (s RequestSpan) End(status int, errorKind string, err error) {
	if s.span == nil {
		return
	}
	var attrs []attribute.KeyValue
	if status > 0 {
		attrs = append(attrs, semconv.HTTPResponseStatusCode(status))
	}
	if errorKind != "" {
		attrs = append(attrs, semconv.ErrorTypeKey.String(errorKind))
	}
	s.span.SetAttributes(attrs...)
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

package service

import (
	"context"
	"errors"

	"github.com/ezenity/ezenity-api/internal/observability"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return observability.Tracer().Start(ctx, "AccountService."+name)
}

// endSpan marks the span failed only for server-side errors; rejected
// credentials and tokens are expected outcomes.
func endSpan(span trace.Span, err error) {
	if err != nil && errors.Is(err, ErrDataAccess) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "data access failure")
	}
	span.End()
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrDataAccess):
		return "error"
	default:
		return "rejected"
	}
}

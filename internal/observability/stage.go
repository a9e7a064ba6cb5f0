package observability

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/yungbote/wikigraph-backend/pipeline"

// StageSpan wraps the span of one pipeline stage.
type StageSpan struct {
	span trace.Span
}

func StartStage(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, *StageSpan) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline."+stage,
		trace.WithAttributes(append([]attribute.KeyValue{attribute.String("pipeline.stage", stage)}, attrs...)...),
	)
	return ctx, &StageSpan{span: span}
}

func (s *StageSpan) Count(key string, n int64) {
	s.span.SetAttributes(attribute.Int64(key, n))
}

func (s *StageSpan) Attr(key, val string) {
	s.span.SetAttributes(attribute.String(key, val))
}

// End closes the span, marking it failed when err is non-nil.
func (s *StageSpan) End(err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

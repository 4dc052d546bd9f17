package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/Togather-Foundation/social-events/internal/metrics"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Togather-Foundation/social-events/internal/storage/mongostore"

// observe starts a client span for one collection operation. The returned
// func ends the span and records query metrics; pass it the operation's error.
func observe(ctx context.Context, collection, operation string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "mongo."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "mongodb"),
			attribute.String("db.mongodb.collection", collection),
			attribute.String("db.operation", operation),
		),
	)
	return ctx, func(err error) {
		metrics.RecordQuery(collection, operation, start, err)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

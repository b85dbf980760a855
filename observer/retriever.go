package observer

import (
	"context"
	"time"

	quarry "github.com/quarryhq/quarry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedRetriever wraps a quarry.Retriever with OTEL instrumentation.
type ObservedRetriever struct {
	inner quarry.Retriever
	inst  *Instruments
}

// WrapRetriever returns an instrumented retriever.
func WrapRetriever(inner quarry.Retriever, inst *Instruments) *ObservedRetriever {
	return &ObservedRetriever{inner: inner, inst: inst}
}

func (o *ObservedRetriever) Retrieve(ctx context.Context, query string, desc quarry.Descriptor, scope quarry.Scope, topK int, m quarry.Metric) ([]quarry.ScoredChunk, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "rag.retrieve", trace.WithAttributes(
		AttrRetrievalStrategy.String(desc.String()),
		AttrRetrievalScope.String(scope.String()),
		AttrRetrievalMetric.String(m.String()),
		AttrRetrievalTopK.Int(topK),
	))
	defer span.End()
	start := time.Now()

	chunks, err := o.inner.Retrieve(ctx, query, desc, scope, topK, m)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(AttrRetrievalResults.Int(len(chunks)))

	o.inst.RetrievalRequests.Add(ctx, 1, metric.WithAttributes(
		AttrRetrievalScope.String(scope.String()),
		attribute.String("status", status),
	))
	o.inst.RetrievalDuration.Record(ctx, durationMs, metric.WithAttributes(
		AttrRetrievalScope.String(scope.String()),
	))

	return chunks, err
}

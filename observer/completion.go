package observer

import (
	"context"
	"time"

	quarry "github.com/quarryhq/quarry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedCompletion wraps a quarry.CompletionProvider with OTEL instrumentation.
type ObservedCompletion struct {
	inner quarry.CompletionProvider
	inst  *Instruments
	model string
}

// WrapCompletion returns an instrumented completion provider that emits
// traces, metrics, and logs.
func WrapCompletion(inner quarry.CompletionProvider, model string, inst *Instruments) *ObservedCompletion {
	return &ObservedCompletion{inner: inner, inst: inst, model: model}
}

func (o *ObservedCompletion) Name() string { return o.inner.Name() }

func (o *ObservedCompletion) Complete(ctx context.Context, messages []quarry.ChatMessage) (string, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
	))
	defer span.End()
	start := time.Now()

	reply, err := o.inner.Complete(ctx, messages)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	o.inst.LLMRequests.Add(ctx, 1, metric.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
		attribute.String("status", status),
	))
	o.inst.LLMDuration.Record(ctx, durationMs, metric.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
	))

	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue("completion finished"))
	rec.AddAttributes(
		otellog.String("llm.model", o.model),
		otellog.String("llm.provider", o.inner.Name()),
		otellog.Int("llm.messages", len(messages)),
		otellog.Float64("llm.duration_ms", durationMs),
		otellog.String("status", status),
	)
	o.inst.Logger.Emit(ctx, rec)

	return reply, err
}

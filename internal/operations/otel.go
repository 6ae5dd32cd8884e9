package operations

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"datapipe/internal/infrastructure"
)

// RunTracer records spans and business metrics for runs and stages. A zero
// configuration (nil metrics, global noop tracer) is valid and records
// nothing, so tests and the bare CLI need no otel setup.
type RunTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewRunTracer creates a tracer over the given instruments. Both arguments
// may be nil.
func NewRunTracer(tracer trace.Tracer, metrics *infrastructure.PipelineMetrics) *RunTracer {
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.MeterName)
	}
	return &RunTracer{tracer: tracer, metrics: metrics}
}

// StartRun opens the root span for a run.
func (t *RunTracer) StartRun(ctx context.Context, state *RunState) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("run.id", state.ID),
			attribute.Int("run.year", state.Params.Year),
		))
}

// EndRun closes the run span and counts the run by final status.
func (t *RunTracer) EndRun(ctx context.Context, span trace.Span, state *RunState, err error) {
	status := "completed"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if t.metrics != nil {
		t.metrics.RunsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", status),
			attribute.Int("year", state.Params.Year),
		))
	}
	span.End()
}

// StartStage opens a span for one stage.
func (t *RunTracer) StartStage(ctx context.Context, stageID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "pipeline.stage."+stageID,
		trace.WithAttributes(attribute.String("stage.id", stageID)))
}

// EndStage closes a stage span and records its duration.
func (t *RunTracer) EndStage(ctx context.Context, span trace.Span, stageID string, dur time.Duration, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if t.metrics != nil {
		status := "completed"
		if err != nil {
			status = "failed"
		}
		t.metrics.StageDuration.Record(ctx, dur.Seconds(), metric.WithAttributes(
			attribute.String("stage", stageID),
			attribute.String("status", status),
		))
	}
	span.End()
}

// RecordRows counts rows written by a stage artifact.
func (t *RunTracer) RecordRows(ctx context.Context, stageID string, rows int) {
	if t.metrics == nil {
		return
	}
	t.metrics.RowsProcessed.Add(ctx, int64(rows), metric.WithAttributes(
		attribute.String("stage", stageID)))
}

// RecordDrops counts rows dropped by the cleaner, by reason.
func (t *RunTracer) RecordDrops(ctx context.Context, reason string, rows int) {
	if t.metrics == nil || rows == 0 {
		return
	}
	t.metrics.RowsDropped.Add(ctx, int64(rows), metric.WithAttributes(
		attribute.String("reason", reason)))
}

package operations

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"datapipe/pkg/contracts/domain"
)

// Runner executes the registered stages strictly in order. The first stage
// failure halts the run; every remaining stage is marked skipped and never
// executes.
type Runner struct {
	registry *Registry
	tracer   *RunTracer
	logger   *slog.Logger
}

// NewRunner creates a runner over the registry.
func NewRunner(registry *Registry, tracer *RunTracer, logger *slog.Logger) *Runner {
	if tracer == nil {
		tracer = NewRunTracer(nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{registry: registry, tracer: tracer, logger: logger}
}

// NewRun creates the pending run state for the given parameters. The state
// can be inspected (or served over HTTP) while Run executes it.
func (r *Runner) NewRun(params domain.RunParams) *RunState {
	return NewRunState(uuid.New().String(), params, r.registry.Stages())
}

// Run executes the run to completion or first failure. The returned error
// is the halting stage's error, wrapped with the stage ID; it is also
// recorded on the state.
func (r *Runner) Run(ctx context.Context, state *RunState) error {
	state.Start()
	ctx, span := r.tracer.StartRun(ctx, state)
	logger := r.logger.With(
		slog.String("run_id", state.ID),
		slog.Int("year", state.Params.Year))
	logger.InfoContext(ctx, "pipeline run started",
		slog.Int("stages", r.registry.Len()))

	var runErr error
	stages := r.registry.Stages()
	for i, stage := range stages {
		stageState := state.Stage(stage.ID())

		if err := ctx.Err(); err != nil {
			runErr = NewStageError(stage.ID(), "run cancelled", err)
			stageState.Fail(runErr)
			r.skipRemaining(stages[i+1:], state, "upstream stage failed")
			break
		}

		if err := stage.Validate(state); err != nil {
			runErr = NewStageError(stage.ID(), "validation failed", err)
			stageState.Fail(runErr)
			r.skipRemaining(stages[i+1:], state, "upstream stage failed")
			break
		}

		stageState.Start()
		stageCtx, stageSpan := r.tracer.StartStage(ctx, stage.ID())
		logger.InfoContext(stageCtx, "stage started", slog.String("stage", stage.ID()))

		err := stage.Execute(stageCtx, state)
		r.tracer.EndStage(stageCtx, stageSpan, stage.ID(), stageState.Duration(), err)

		if err != nil {
			runErr = NewStageError(stage.ID(), "execution failed", err)
			stageState.Fail(err)
			logger.ErrorContext(ctx, "stage failed",
				slog.String("stage", stage.ID()),
				slog.String("error", err.Error()))
			r.skipRemaining(stages[i+1:], state, "upstream stage failed")
			break
		}

		stageState.Complete()
		r.tracer.RecordRows(ctx, stage.ID(), stageState.RowsOut)
		logger.InfoContext(ctx, "stage completed",
			slog.String("stage", stage.ID()),
			slog.Duration("duration", stageState.Duration()),
			slog.Int("rows_out", stageState.RowsOut))
	}

	if runErr != nil {
		state.Fail(runErr)
	} else {
		state.Complete()
	}
	r.tracer.EndRun(ctx, span, state, runErr)

	if runErr != nil {
		logger.ErrorContext(ctx, "pipeline run failed",
			slog.String("failing_stage", FailingStageID(runErr)))
		return runErr
	}
	logger.InfoContext(ctx, "pipeline run completed",
		slog.Int("artifacts", len(state.Artifacts())))
	return nil
}

func (r *Runner) skipRemaining(stages []Stage, state *RunState, reason string) {
	for _, s := range stages {
		state.Stage(s.ID()).Skip(reason)
	}
}

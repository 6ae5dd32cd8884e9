// Package http exposes the pipeline over a small REST surface: start a
// run, poll its state, list runs.
package http

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"datapipe/internal/infrastructure"
	"datapipe/internal/operations"
	"datapipe/pkg/contracts/domain"
)

// ErrYearActive is returned when a run for the requested year is already
// executing. Concurrent runs for the same year would race on the year's
// artifacts.
var ErrYearActive = errors.New("a pipeline run for this year is already active")

// PipelineService starts runs asynchronously and tracks their state for
// polling. Runs for distinct years may execute concurrently; one year
// admits one active run at a time.
type PipelineService struct {
	runner *operations.Runner
	logger *slog.Logger

	mu          sync.Mutex
	runs        map[string]*operations.RunState
	order       []string
	activeYears map[int]string
}

// NewPipelineService creates the run service.
func NewPipelineService(runner *operations.Runner, logger *slog.Logger) *PipelineService {
	if runner == nil {
		panic("runner cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineService{
		runner:      runner,
		logger:      logger.With(slog.String("component", "pipeline_service")),
		runs:        make(map[string]*operations.RunState),
		activeYears: make(map[int]string),
	}
}

// StartRun begins a run in the background and returns its state
// immediately. Fails with ErrYearActive when the year is busy.
func (s *PipelineService) StartRun(ctx context.Context, params domain.RunParams) (*operations.RunState, error) {
	s.mu.Lock()
	if _, busy := s.activeYears[params.Year]; busy {
		s.mu.Unlock()
		return nil, ErrYearActive
	}
	state := s.runner.NewRun(params)
	s.runs[state.ID] = state
	s.order = append(s.order, state.ID)
	s.activeYears[params.Year] = state.ID
	s.mu.Unlock()

	// The run outlives the request; only the trace ID carries over.
	runCtx := infrastructure.WithTraceID(context.Background(), state.ID)
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.activeYears, params.Year)
			s.mu.Unlock()
		}()
		if err := s.runner.Run(runCtx, state); err != nil {
			s.logger.Error("background run failed",
				slog.String("run_id", state.ID),
				slog.Int("year", params.Year),
				slog.String("error", err.Error()))
		}
	}()

	return state, nil
}

// Run returns the state of one run by ID.
func (s *PipelineService) Run(id string) (*operations.RunState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.runs[id]
	return state, ok
}

// Runs returns snapshots of all known runs in start order.
func (s *PipelineService) Runs() []operations.RunSnapshot {
	s.mu.Lock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	states := make([]*operations.RunState, 0, len(ids))
	for _, id := range ids {
		states = append(states, s.runs[id])
	}
	s.mu.Unlock()

	out := make([]operations.RunSnapshot, 0, len(states))
	for _, st := range states {
		out = append(out, st.Snapshot())
	}
	return out
}

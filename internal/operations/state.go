package operations

import (
	"sync"
	"time"

	"datapipe/pkg/contracts/domain"
)

// StageStatus is the lifecycle state of one stage within a run.
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusActive    StageStatus = "active"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
	StageStatusSkipped   StageStatus = "skipped"
)

// RunStatus is the lifecycle state of a whole run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// StageState is the runtime record of one stage.
type StageState struct {
	mu        sync.RWMutex
	ID        string
	Name      string
	Status    StageStatus
	StartTime *time.Time
	EndTime   *time.Time
	Message   string
	Err       error
	RowsOut   int
}

// NewStageState creates a pending stage record.
func NewStageState(id, name string) *StageState {
	return &StageState{ID: id, Name: name, Status: StageStatusPending}
}

// Start marks the stage active.
func (s *StageState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.StartTime = &now
	s.Status = StageStatusActive
}

// Complete marks the stage completed.
func (s *StageState) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = StageStatusCompleted
}

// Fail marks the stage failed with its error.
func (s *StageState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = StageStatusFailed
	s.Err = err
}

// Skip marks the stage skipped with a reason.
func (s *StageState) Skip(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = StageStatusSkipped
	s.Message = reason
}

// SetRowsOut records the row count of the stage's output artifact.
func (s *StageState) SetRowsOut(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RowsOut = n
}

// Duration returns how long the stage ran, or has been running.
func (s *StageState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.StartTime == nil {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(*s.StartTime)
	}
	return time.Since(*s.StartTime)
}

func (s *StageState) snapshot() StageSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := StageSnapshot{
		ID:      s.ID,
		Name:    s.Name,
		Status:  s.Status,
		Message: s.Message,
		RowsOut: s.RowsOut,
	}
	if s.StartTime != nil {
		t := *s.StartTime
		snap.StartTime = &t
	}
	if s.EndTime != nil {
		t := *s.EndTime
		snap.EndTime = &t
	}
	if s.Err != nil {
		snap.Error = s.Err.Error()
	}
	return snap
}

// RunState is the runtime record of one pipeline run. Stage order is fixed
// at creation; stages and artifacts mutate as the run progresses.
type RunState struct {
	mu sync.RWMutex

	ID        string
	Params    domain.RunParams
	Status    RunStatus
	StartTime *time.Time
	EndTime   *time.Time
	Err       error

	stageOrder []string
	stages     map[string]*StageState
	artifacts  []string
}

// NewRunState creates a pending run over the given stages.
func NewRunState(id string, params domain.RunParams, stages []Stage) *RunState {
	state := &RunState{
		ID:     id,
		Params: params,
		Status: RunStatusPending,
		stages: make(map[string]*StageState, len(stages)),
	}
	for _, s := range stages {
		state.stageOrder = append(state.stageOrder, s.ID())
		state.stages[s.ID()] = NewStageState(s.ID(), s.Name())
	}
	return state
}

// Start marks the run as running.
func (r *RunState) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.StartTime = &now
	r.Status = RunStatusRunning
}

// Complete marks the run completed.
func (r *RunState) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusCompleted
}

// Fail marks the run failed with the halting error.
func (r *RunState) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusFailed
	r.Err = err
}

// Stage returns the state record for a stage ID, or nil.
func (r *RunState) Stage(id string) *StageState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stages[id]
}

// StageIDs returns the stage IDs in execution order.
func (r *RunState) StageIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.stageOrder))
	copy(out, r.stageOrder)
	return out
}

// AddArtifact records the path of an artifact written during the run.
func (r *RunState) AddArtifact(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts = append(r.artifacts, path)
}

// Artifacts returns the artifact paths recorded so far, in write order.
func (r *RunState) Artifacts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.artifacts))
	copy(out, r.artifacts)
	return out
}

// FailingStage returns the stage that halted the run, or nil when none
// failed.
func (r *RunState) FailingStage() *StageState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.stageOrder {
		if s := r.stages[id]; s.Status == StageStatusFailed {
			return s
		}
	}
	return nil
}

// StageSnapshot is the serializable view of one stage's state.
type StageSnapshot struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Status    StageStatus `json:"status"`
	StartTime *time.Time  `json:"start_time,omitempty"`
	EndTime   *time.Time  `json:"end_time,omitempty"`
	Message   string      `json:"message,omitempty"`
	Error     string      `json:"error,omitempty"`
	RowsOut   int         `json:"rows_out,omitempty"`
}

// RunSnapshot is the serializable view of a run, safe to marshal while the
// run is still executing.
type RunSnapshot struct {
	ID        string          `json:"id"`
	Year      int             `json:"year"`
	Status    RunStatus       `json:"status"`
	StartTime *time.Time      `json:"start_time,omitempty"`
	EndTime   *time.Time      `json:"end_time,omitempty"`
	Stages    []StageSnapshot `json:"stages"`
	Artifacts []string        `json:"artifacts,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Snapshot returns a consistent copy of the run state.
func (r *RunState) Snapshot() RunSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := RunSnapshot{
		ID:     r.ID,
		Year:   r.Params.Year,
		Status: r.Status,
	}
	if r.StartTime != nil {
		t := *r.StartTime
		snap.StartTime = &t
	}
	if r.EndTime != nil {
		t := *r.EndTime
		snap.EndTime = &t
	}
	if r.Err != nil {
		snap.Error = r.Err.Error()
	}
	for _, id := range r.stageOrder {
		snap.Stages = append(snap.Stages, r.stages[id].snapshot())
	}
	snap.Artifacts = append(snap.Artifacts, r.artifacts...)
	return snap
}

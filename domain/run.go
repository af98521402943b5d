package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStep is one recorded step of a release or deploy run.
type RunStep struct {
	Name       string     `json:"name"`
	Status     StepStatus `json:"status"`
	Reason     string     `json:"reason,omitempty"`
	DurationMS int64      `json:"duration_ms"`
}

// Run is a finished release or deploy as kept in the history database.
type Run struct {
	ID          uuid.UUID `json:"id"`
	Kind        RunKind   `json:"kind"`
	ComponentID string    `json:"component_id"`
	ProjectID   string    `json:"project_id,omitempty"`
	Version     string    `json:"version,omitempty"`
	DryRun      bool      `json:"dry_run"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	Steps       []RunStep `json:"steps"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// NewRun starts a run record. StartedAt is now.
func NewRun(kind RunKind, componentID string) *Run {
	return &Run{
		ID:          uuid.New(),
		Kind:        kind,
		ComponentID: componentID,
		Steps:       []RunStep{},
		StartedAt:   time.Now(),
	}
}

// Finish stamps the run as completed.
func (r *Run) Finish(success bool, err error) {
	r.Success = success
	if err != nil {
		r.Error = err.Error()
	}
	r.FinishedAt = time.Now()
}

// Duration is the wall time between start and finish.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

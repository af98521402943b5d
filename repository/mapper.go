// Package repository provides the data access layer for run history.
package repository

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/homeboy-cli/homeboy/db"
	"github.com/homeboy-cli/homeboy/domain"
)

type RunMapper struct{}

func (m *RunMapper) ToDomain(r *db.RunModel) *domain.Run {
	kind, err := domain.ParseRunKind(r.Kind)
	if err != nil {
		slog.Warn("Unknown run kind in history", "run_id", r.ID, "kind", r.Kind)
		kind = domain.RunKind(r.Kind)
	}

	steps := make([]domain.RunStep, 0, len(r.Steps))
	for _, s := range r.Steps {
		status, err := domain.ParseStepStatus(s.Status)
		if err != nil {
			status = domain.StepStatus(s.Status)
		}
		steps = append(steps, domain.RunStep{
			Name:       s.Name,
			Status:     status,
			Reason:     s.Reason,
			DurationMS: s.DurationMS,
		})
	}

	return &domain.Run{
		ID:          r.ID,
		Kind:        kind,
		ComponentID: r.ComponentID,
		ProjectID:   r.ProjectID,
		Version:     r.Version,
		DryRun:      r.DryRun,
		Success:     r.Success,
		Error:       r.Error,
		Steps:       steps,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
	}
}

func (m *RunMapper) ToModel(r *domain.Run) *db.RunModel {
	id := r.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	steps := make([]db.RunStepModel, 0, len(r.Steps))
	for i, s := range r.Steps {
		steps = append(steps, db.RunStepModel{
			BaseModel:  db.BaseModel{ID: uuid.New()},
			RunID:      id,
			Position:   i,
			Name:       s.Name,
			Status:     s.Status.String(),
			Reason:     s.Reason,
			DurationMS: s.DurationMS,
		})
	}

	return &db.RunModel{
		BaseModel:   db.BaseModel{ID: id},
		Kind:        r.Kind.String(),
		ComponentID: r.ComponentID,
		ProjectID:   r.ProjectID,
		Version:     r.Version,
		DryRun:      r.DryRun,
		Success:     r.Success,
		Error:       r.Error,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		Steps:       steps,
	}
}

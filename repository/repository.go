package repository

import (
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/homeboy-cli/homeboy/db"
	"github.com/homeboy-cli/homeboy/domain"
)

// DefaultListLimit caps history listings without an explicit limit.
const DefaultListLimit = 20

// RunFilter narrows a history listing. Zero values match everything.
type RunFilter struct {
	ComponentID string
	ProjectID   string
	Kind        domain.RunKind
	Limit       int
}

type RunRepository interface {
	Create(run *domain.Run) error
	FindByID(id uuid.UUID) (*domain.Run, error)
	List(filter RunFilter) ([]*domain.Run, error)
	Delete(id uuid.UUID) error
}

type runRepository struct {
	db     *gorm.DB
	mapper *RunMapper
}

func (r *runRepository) Create(run *domain.Run) error {
	m := r.mapper.ToModel(run)
	if err := r.db.Create(m).Error; err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "create_run",
			"run_id", m.ID,
			"component_id", run.ComponentID,
			"error", err)
		return err
	}
	run.ID = m.ID
	return nil
}

func (r *runRepository) FindByID(id uuid.UUID) (*domain.Run, error) {
	var m db.RunModel
	err := r.db.Preload("Steps", orderByPosition).First(&m, "id = ?", id).Error
	if err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "find_run",
			"run_id", id,
			"error", err)
		return nil, err
	}
	return r.mapper.ToDomain(&m), nil
}

func (r *runRepository) List(filter RunFilter) ([]*domain.Run, error) {
	q := r.db.Preload("Steps", orderByPosition).Order("started_at DESC")
	if filter.ComponentID != "" {
		q = q.Where("component_id = ?", filter.ComponentID)
	}
	if filter.ProjectID != "" {
		q = q.Where("project_id = ?", filter.ProjectID)
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind.String())
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var models []db.RunModel
	if err := q.Limit(limit).Find(&models).Error; err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "list_runs",
			"component_id", filter.ComponentID,
			"error", err)
		return nil, err
	}

	runs := make([]*domain.Run, len(models))
	for i := range models {
		runs[i] = r.mapper.ToDomain(&models[i])
	}
	return runs, nil
}

func (r *runRepository) Delete(id uuid.UUID) error {
	err := r.db.Delete(&db.RunModel{}, "id = ?", id).Error
	if err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "delete_run",
			"run_id", id,
			"error", err)
	}
	return err
}

func orderByPosition(tx *gorm.DB) *gorm.DB {
	return tx.Order("position")
}

func NewRunRepository(db *gorm.DB) RunRepository {
	return &runRepository{
		db:     db,
		mapper: &RunMapper{},
	}
}

// Record stores a finished run when repo is configured. Failures are
// logged and otherwise ignored.
func Record(repo RunRepository, run *domain.Run) {
	if repo == nil || run == nil {
		return
	}
	if err := repo.Create(run); err != nil {
		slog.Warn("Failed to record run history", "run_id", run.ID, "kind", run.Kind, "error", err)
	}
}

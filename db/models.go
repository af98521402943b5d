// Package db holds the sqlite schema of the release and deploy history.
package db

import (
	"time"

	"github.com/google/uuid"
)

type BaseModel struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type RunModel struct {
	BaseModel
	Kind        string    `gorm:"not null;check:kind <> ''"` // release, deploy
	ComponentID string    `gorm:"not null;index;check:component_id <> ''"`
	ProjectID   string    `gorm:"index"`
	Version     string    // version released or deployed, when known
	DryRun      bool      `gorm:"not null"`
	Success     bool      `gorm:"not null"`
	Error       string    `gorm:"type:text"`
	StartedAt   time.Time `gorm:"not null"`
	FinishedAt  time.Time

	Steps []RunStepModel `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

func (RunModel) TableName() string {
	return "runs"
}

type RunStepModel struct {
	BaseModel
	RunID      uuid.UUID `gorm:"type:char(36);not null;index"`
	Position   int       `gorm:"not null"`
	Name       string    `gorm:"not null;check:name <> ''"`
	Status     string    `gorm:"not null;check:status <> ''"` // ok, skipped, failed
	Reason     string    `gorm:"type:text"`
	DurationMS int64     `gorm:"not null"`

	Run RunModel `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

func (RunStepModel) TableName() string {
	return "run_steps"
}

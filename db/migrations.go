package db

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Migration is one ordered schema change applied after auto-migration.
type Migration struct {
	ID   int
	Name string
	Up   func(*gorm.DB) error
}

// MigrationModel records applied migrations.
type MigrationModel struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"not null;unique"`
	AppliedAt time.Time `gorm:"not null"`
}

func (MigrationModel) TableName() string {
	return "migrations"
}

var allMigrations = []Migration{
	{
		ID:   1,
		Name: "0001_index_runs_by_component_and_start",
		Up:   migration0001IndexRunsByComponentAndStart,
	},
	{
		ID:   2,
		Name: "0002_index_steps_by_run_and_position",
		Up:   migration0002IndexStepsByRunAndPosition,
	},
}

// AllModels returns every model auto-migration manages.
func AllModels() []any {
	return []any{
		&MigrationModel{},
		&RunModel{},
		&RunStepModel{},
	}
}

// AutoMigrateAll creates the tables and then applies pending migrations.
func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return err
	}
	return RunMigrations(db, len(allMigrations))
}

// RunMigrations applies migrations up to and including targetID. A
// targetID of zero or less applies all of them.
func RunMigrations(db *gorm.DB, targetID int) error {
	if targetID <= 0 {
		targetID = len(allMigrations)
	}

	for _, migration := range allMigrations {
		if migration.ID > targetID {
			break
		}

		applied, err := migrationApplied(db, migration.Name)
		if err != nil {
			return fmt.Errorf("failed to check migration %s: %w", migration.Name, err)
		}
		if applied {
			continue
		}

		if err := migration.Up(db); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Name, err)
		}
		if err := recordMigration(db, migration.Name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Name, err)
		}
	}

	return nil
}

func migrationApplied(db *gorm.DB, name string) (bool, error) {
	var count int64
	err := db.Model(&MigrationModel{}).Where("name = ?", name).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func recordMigration(db *gorm.DB, name string) error {
	return db.Create(&MigrationModel{Name: name, AppliedAt: time.Now()}).Error
}

// History listings filter by component and sort newest first.
func migration0001IndexRunsByComponentAndStart(db *gorm.DB) error {
	return db.Exec("CREATE INDEX IF NOT EXISTS idx_runs_component_started ON runs (component_id, started_at DESC)").Error
}

func migration0002IndexStepsByRunAndPosition(db *gorm.DB) error {
	return db.Exec("CREATE INDEX IF NOT EXISTS idx_run_steps_run_position ON run_steps (run_id, position)").Error
}

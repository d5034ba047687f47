package main

import (
	"gorm.io/gorm"

	"github.com/designwheel/engine/internal/models"
)

// registerModels returns all models that need migration
func registerModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.AllowedStudent{},
		&models.Project{},
		&models.FeedbackAnalysis{},
	}
}

// runMigrations executes all database migrations
func runMigrations(db *gorm.DB) error {
	// gen_random_uuid() defaults need pgcrypto on older servers
	if err := enableUUIDExtension(db); err != nil {
		return err
	}
	if err := db.AutoMigrate(registerModels()...); err != nil {
		return err
	}
	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't handle
func runCustomMigrations(db *gorm.DB) error {
	migrations := []func(*gorm.DB) error{
		addProjectIndexes,
		addStageStatusIndex,
	}
	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}
	return nil
}

func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error
}

// addProjectIndexes backs the dashboard listing: newest first per student.
func addProjectIndexes(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_projects_student_created
		ON projects(student_id, created_at DESC)
	`).Error
}

// addStageStatusIndex lets instructors find submitted stages without a scan.
func addStageStatusIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_projects_stages_gin
		ON projects USING GIN (stages jsonb_path_ops)
	`).Error
}

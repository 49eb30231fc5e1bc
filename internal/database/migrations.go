package database

import (
	"fmt"

	"akiyascout/server/internal/models"
)

func (d *Database) RunMigrations() error {
	err := d.db.AutoMigrate(
		&models.Source{},
		&models.Region{},
		&models.Job{},
		&models.Property{},
		&models.Listing{},
		&models.PropertyScore{},
		&models.PropertyImage{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %v", err)
	}

	// One outstanding job per (source, region): the partial index makes the
	// scheduler's duplicate check atomic with the insert.
	err = d.db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uq_jobs_outstanding
		ON jobs(source_id, region_code)
		WHERE status IN ('pending', 'running');
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create outstanding-jobs index: %v", err)
	}

	err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_jobs_status_created
		ON jobs(status, created_at);
	`).Error
	if err != nil {
		return err
	}

	return nil
}

package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"akiyascout/server/internal/models"
)

// ErrJobOutstanding is returned when a job for the same (source, region)
// pair is already pending or running.
var ErrJobOutstanding = errors.New("an equivalent job is already pending or running")

type Database struct {
	db *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

// IsUniqueViolation reports whether err is a SQLite uniqueness constraint
// failure. This is the storage-layer backstop for both the dedup key and the
// scheduler's duplicate-job guard.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// SeedRegions inserts any prefecture rows that are not present yet.
func (d *Database) SeedRegions(regions []models.Region) error {
	for _, r := range regions {
		if err := d.db.Where(models.Region{Code: r.Code}).FirstOrCreate(&r).Error; err != nil {
			return fmt.Errorf("failed to seed region %s: %w", r.Code, err)
		}
	}
	return nil
}

// SeedSources writes the deploy-time source catalogue. Existing rows are
// overwritten; the catalogue file is the source of truth.
func (d *Database) SeedSources(sources []models.Source) error {
	for _, s := range sources {
		if err := d.db.Save(&s).Error; err != nil {
			return fmt.Errorf("failed to seed source %s: %w", s.ID, err)
		}
	}
	return nil
}

func (d *Database) GetSource(id string) (*models.Source, error) {
	var src models.Source
	err := d.db.First(&src, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func (d *Database) ListSources() ([]models.Source, error) {
	var sources []models.Source
	err := d.db.Order("id").Find(&sources).Error
	return sources, err
}

func (d *Database) ListEnabledSources() ([]models.Source, error) {
	var sources []models.Source
	err := d.db.Where("enabled = ?", true).Order("id").Find(&sources).Error
	return sources, err
}

func (d *Database) ListRegions() ([]models.Region, error) {
	var regions []models.Region
	err := d.db.Order("code").Find(&regions).Error
	return regions, err
}

// CreateJob inserts a pending job. The partial unique index on
// (source_id, region_code) over pending/running rows makes the
// "unless one is already outstanding" check atomic with the insert.
func (d *Database) CreateJob(job *models.Job) error {
	job.Status = models.JobStatusPending
	err := d.db.Create(job).Error
	if IsUniqueViolation(err) {
		return ErrJobOutstanding
	}
	return err
}

// ClaimJob transitions a pending job to running. Returns false when another
// worker already claimed it; the conditional UPDATE is the atomicity guard.
func (d *Database) ClaimJob(jobID string) (bool, error) {
	now := time.Now().UTC()
	res := d.db.Model(&models.Job{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     models.JobStatusRunning,
			"started_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// JobCounts is the per-job outcome counter set.
type JobCounts struct {
	Found   int
	New     int
	Updated int
	Skipped int
}

// FinishJob records a terminal status and the final counters. Error messages
// are capped so a pathological source cannot bloat the ledger.
func (d *Database) FinishJob(jobID, status, errorMessage string, counts JobCounts) error {
	if len(errorMessage) > 500 {
		errorMessage = errorMessage[:500]
	}
	now := time.Now().UTC()
	return d.db.Model(&models.Job{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":        status,
			"found":         counts.Found,
			"new":           counts.New,
			"updated":       counts.Updated,
			"skipped":       counts.Skipped,
			"error_message": errorMessage,
			"completed_at":  now,
		}).Error
}

func (d *Database) GetJob(jobID string) (*models.Job, error) {
	var job models.Job
	err := d.db.First(&job, "id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs returns recent jobs newest first, optionally filtered by source
// and status.
func (d *Database) ListJobs(sourceID, status string, limit int) ([]models.Job, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := d.db.Order("created_at DESC").Limit(limit)
	if sourceID != "" {
		q = q.Where("source_id = ?", sourceID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var jobs []models.Job
	err := q.Find(&jobs).Error
	return jobs, err
}

// FailInterruptedJobs marks jobs still flagged running as failed. Called once
// at startup: a job can only be left in that state by a crash, and the
// outstanding-job index would otherwise block its source and region forever.
func (d *Database) FailInterruptedJobs() (int64, error) {
	now := time.Now().UTC()
	res := d.db.Model(&models.Job{}).
		Where("status = ?", models.JobStatusRunning).
		Updates(map[string]interface{}{
			"status":        models.JobStatusFailed,
			"error_message": "interrupted by restart",
			"completed_at":  now,
		})
	return res.RowsAffected, res.Error
}

func (d *Database) ListPendingJobs() ([]models.Job, error) {
	var jobs []models.Job
	err := d.db.Where("status = ?", models.JobStatusPending).
		Order("created_at").Find(&jobs).Error
	return jobs, err
}

func (d *Database) CountRunningJobs(sourceID string) (int64, error) {
	var n int64
	err := d.db.Model(&models.Job{}).
		Where("source_id = ? AND status = ?", sourceID, models.JobStatusRunning).
		Count(&n).Error
	return n, err
}

func (d *Database) LastCompletedJob(sourceID string) (*models.Job, error) {
	var job models.Job
	err := d.db.Where("source_id = ? AND status = ?", sourceID, models.JobStatusCompleted).
		Order("completed_at DESC").First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// StaleCutoff returns the start time of the n-th most recent completed job
// that could have re-observed listings in the region: jobs for that
// (source, region) pair plus whole-source jobs, which cover every region.
// Listings last seen before that boundary have been missed by n consecutive
// completed jobs. Jobs for other regions never re-observe these listings, so
// they do not move the window.
func (d *Database) StaleCutoff(sourceID, regionCode string, n int) (*time.Time, error) {
	q := d.db.Where("source_id = ? AND status = ? AND started_at IS NOT NULL",
		sourceID, models.JobStatusCompleted)
	if regionCode == "" {
		q = q.Where("region_code = ''")
	} else {
		q = q.Where("region_code IN (?, '')", regionCode)
	}
	var jobs []models.Job
	err := q.Order("completed_at DESC").Limit(n).Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	if len(jobs) < n {
		return nil, nil
	}
	return jobs[n-1].StartedAt, nil
}

// MarkStaleListings soft-marks listings for the source that were last seen
// before cutoff, then downgrades properties left with no active listings.
// A non-empty regionCode restricts the sweep to listings whose property sits
// in that prefecture, matching the scope of the jobs the cutoff came from.
// Nothing is deleted.
func (d *Database) MarkStaleListings(sourceID, regionCode string, cutoff time.Time) (int64, error) {
	q := d.db.Model(&models.Listing{}).
		Where("source_id = ? AND status = ? AND last_seen_at < ?",
			sourceID, models.StatusActive, cutoff)
	if regionCode != "" {
		q = q.Where("property_id IN (?)",
			d.db.Model(&models.Property{}).Select("id").Where("prefecture_code = ?", regionCode))
	}
	res := q.Update("status", models.StatusStale)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		err := d.db.Exec(`
			UPDATE properties SET status = ?
			WHERE status = ?
			AND id NOT IN (SELECT property_id FROM listings WHERE status = ?)
		`, models.StatusStale, models.StatusActive, models.StatusActive).Error
		if err != nil {
			return res.RowsAffected, err
		}
	}
	return res.RowsAffected, nil
}

func (d *Database) GetProperty(id int64) (*models.Property, error) {
	var prop models.Property
	err := d.db.First(&prop, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prop, nil
}

// ListProperties returns properties newest first, optionally filtered by
// prefecture and status.
func (d *Database) ListProperties(prefectureCode, status string, limit int) ([]models.Property, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := d.db.Order("created_at DESC").Limit(limit)
	if prefectureCode != "" {
		q = q.Where("prefecture_code = ?", prefectureCode)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var props []models.Property
	err := q.Find(&props).Error
	return props, err
}

// ListListings returns recently seen listings, optionally filtered by source
// and status.
func (d *Database) ListListings(sourceID, status string, limit int) ([]models.Listing, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := d.db.Order("last_seen_at DESC").Limit(limit)
	if sourceID != "" {
		q = q.Where("source_id = ?", sourceID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var listings []models.Listing
	err := q.Find(&listings).Error
	return listings, err
}

// GetHealthSummary assembles the operator-facing health report.
func (d *Database) GetHealthSummary() (*models.HealthSummary, error) {
	sources, err := d.ListEnabledSources()
	if err != nil {
		return nil, err
	}

	summary := &models.HealthSummary{}
	for _, src := range sources {
		health := models.SourceHealth{
			SourceID:    src.ID,
			DisplayName: src.DisplayName,
		}

		last, err := d.LastCompletedJob(src.ID)
		if err != nil {
			return nil, err
		}
		if last != nil {
			health.LastCompletedAt = last.CompletedAt
			health.LastFound = last.Found
			health.LastNew = last.New
			health.LastUpdated = last.Updated
			health.LastSkipped = last.Skipped
		}

		running, err := d.CountRunningJobs(src.ID)
		if err != nil {
			return nil, err
		}
		health.RunningJobs = int(running)

		err = d.db.Model(&models.Listing{}).
			Where("source_id = ?", src.ID).
			Distinct("property_id").
			Count(&health.PropertyCount).Error
		if err != nil {
			return nil, err
		}

		summary.Sources = append(summary.Sources, health)
	}

	if err := d.db.Model(&models.Property{}).Count(&summary.TotalProperties).Error; err != nil {
		return nil, err
	}
	if err := d.db.Model(&models.Listing{}).Count(&summary.TotalListings).Error; err != nil {
		return nil, err
	}
	return summary, nil
}

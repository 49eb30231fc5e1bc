package database

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"akiyascout/server/internal/models"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()

	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.RunMigrations())
	require.NoError(t, db.SeedSources([]models.Source{
		{ID: "suumo", DisplayName: "SUUMO", Enabled: true, MaxConcurrentJobs: 3, MaxInFlightRequests: 4},
	}))
	return db
}

func TestCreateJobRejectsOutstandingDuplicate(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.CreateJob(&models.Job{ID: "j-1", SourceID: "suumo", RegionCode: "13"}))

	err := db.CreateJob(&models.Job{ID: "j-2", SourceID: "suumo", RegionCode: "13"})
	assert.ErrorIs(t, err, ErrJobOutstanding)

	// A different region is a different slot.
	require.NoError(t, db.CreateJob(&models.Job{ID: "j-3", SourceID: "suumo", RegionCode: "27"}))
}

func TestCreateJobAllowsNewAfterCompletion(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.CreateJob(&models.Job{ID: "j-1", SourceID: "suumo", RegionCode: "13"}))
	claimed, err := db.ClaimJob("j-1")
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, db.FinishJob("j-1", models.JobStatusCompleted, "", JobCounts{Found: 10, New: 4}))

	// Terminal jobs no longer occupy the outstanding slot.
	require.NoError(t, db.CreateJob(&models.Job{ID: "j-2", SourceID: "suumo", RegionCode: "13"}))
}

func TestClaimJobIsSingleWinner(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.CreateJob(&models.Job{ID: "j-1", SourceID: "suumo", RegionCode: "13"}))

	first, err := db.ClaimJob("j-1")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := db.ClaimJob("j-1")
	require.NoError(t, err)
	assert.False(t, second)

	job, err := db.GetJob("j-1")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, models.JobStatusRunning, job.Status)
	assert.NotNil(t, job.StartedAt)
}

func TestFinishJobCapsErrorMessage(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.CreateJob(&models.Job{ID: "j-1", SourceID: "suumo", RegionCode: "13"}))
	_, err := db.ClaimJob("j-1")
	require.NoError(t, err)

	long := strings.Repeat("x", 2000)
	require.NoError(t, db.FinishJob("j-1", models.JobStatusFailed, long, JobCounts{Found: 3}))

	job, err := db.GetJob("j-1")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Len(t, job.ErrorMessage, 500)
	assert.Equal(t, 3, job.Found)
	assert.NotNil(t, job.CompletedAt)
}

func TestFailInterruptedJobs(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.CreateJob(&models.Job{ID: "j-1", SourceID: "suumo", RegionCode: "13"}))
	require.NoError(t, db.CreateJob(&models.Job{ID: "j-2", SourceID: "suumo", RegionCode: "27"}))
	_, err := db.ClaimJob("j-1")
	require.NoError(t, err)

	n, err := db.FailInterruptedJobs()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	job, err := db.GetJob("j-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, "interrupted by restart", job.ErrorMessage)

	// Pending jobs are untouched and the freed slot is reusable.
	pending, err := db.ListPendingJobs()
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	require.NoError(t, db.CreateJob(&models.Job{ID: "j-3", SourceID: "suumo", RegionCode: "13"}))
}

func TestStaleCutoffScopedToRegion(t *testing.T) {
	db := setupTestDB(t)

	start := time.Now().UTC().Add(-time.Hour)
	addCompleted := func(id, region string, at time.Time) {
		done := at.Add(time.Minute)
		require.NoError(t, db.GetDB().Create(&models.Job{
			ID: id, SourceID: "suumo", RegionCode: region,
			Status: models.JobStatusCompleted, StartedAt: &at, CompletedAt: &done,
		}).Error)
	}
	addCompleted("j-02a", "02", start)
	addCompleted("j-02b", "02", start.Add(time.Minute))
	addCompleted("j-02c", "02", start.Add(2*time.Minute))

	// Region 01 has no completed jobs of its own; region 02's history must
	// not produce a cutoff for it.
	cutoff, err := db.StaleCutoff("suumo", "01", 3)
	require.NoError(t, err)
	assert.Nil(t, cutoff)

	cutoff, err = db.StaleCutoff("suumo", "02", 3)
	require.NoError(t, err)
	require.NotNil(t, cutoff)
	assert.Equal(t, start.Unix(), cutoff.Unix())

	// Whole-source jobs count for every region.
	addCompleted("j-all-a", "", start.Add(3*time.Minute))
	addCompleted("j-all-b", "", start.Add(4*time.Minute))
	addCompleted("j-all-c", "", start.Add(5*time.Minute))
	cutoff, err = db.StaleCutoff("suumo", "01", 3)
	require.NoError(t, err)
	assert.NotNil(t, cutoff)
}

func TestMarkStaleListingsScopedToRegion(t *testing.T) {
	db := setupTestDB(t)

	seen := time.Now().UTC().Add(-time.Hour)
	makeListing := func(listingID, prefecture string) {
		prop := models.Property{AddressJa: "addr-" + listingID, PrefectureCode: prefecture, Status: models.StatusActive}
		require.NoError(t, db.GetDB().Create(&prop).Error)
		require.NoError(t, db.GetDB().Create(&models.Listing{
			PropertyID: prop.ID, SourceID: "suumo", SourceListingID: listingID,
			Status: models.StatusActive, FirstSeenAt: seen, LastSeenAt: seen,
		}).Error)
	}
	makeListing("l-01", "01")
	makeListing("l-02", "02")

	// Both listings predate the cutoff, but only region 01 is being swept.
	n, err := db.MarkStaleListings("suumo", "01", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var listing models.Listing
	require.NoError(t, db.GetDB().First(&listing, "source_listing_id = ?", "l-01").Error)
	assert.Equal(t, models.StatusStale, listing.Status)
	var listing2 models.Listing
	require.NoError(t, db.GetDB().First(&listing2, "source_listing_id = ?", "l-02").Error)
	assert.Equal(t, models.StatusActive, listing2.Status)

	// An empty region sweeps the whole source.
	n, err = db.MarkStaleListings("suumo", "", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestListJobsFilters(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.CreateJob(&models.Job{ID: "j-1", SourceID: "suumo", RegionCode: "13"}))
	_, err := db.ClaimJob("j-1")
	require.NoError(t, err)
	require.NoError(t, db.FinishJob("j-1", models.JobStatusCompleted, "", JobCounts{}))
	require.NoError(t, db.CreateJob(&models.Job{ID: "j-2", SourceID: "suumo", RegionCode: "13"}))

	completed, err := db.ListJobs("suumo", models.JobStatusCompleted, 0)
	require.NoError(t, err)
	assert.Len(t, completed, 1)

	all, err := db.ListJobs("", "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"akiyascout/server/config"
	"akiyascout/server/internal/database"
	"akiyascout/server/internal/governor"
	"akiyascout/server/internal/ingest"
	"akiyascout/server/internal/models"
	"akiyascout/server/internal/regions"
	"akiyascout/server/internal/scheduler"
)

func setupRouter(t *testing.T) (*gin.Engine, *database.Database) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.RunMigrations())
	require.NoError(t, db.SeedRegions(config.Prefectures))
	require.NoError(t, db.SeedSources([]models.Source{
		{ID: "suumo", DisplayName: "SUUMO", Enabled: true, DefaultIntervalHours: 24, MaxConcurrentJobs: 3},
		{ID: "athome", DisplayName: "at home", Enabled: false, DefaultIntervalHours: 48, MaxConcurrentJobs: 3},
	}))

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	pipeline := ingest.NewPipeline(db, regions.NewResolver(config.Prefectures), nil, logger, 25, 3)
	sched := scheduler.NewScheduler(db, pipeline, governor.New(logger), logger, time.Hour)
	t.Cleanup(sched.Stop)

	router := gin.New()
	SetupRoutes(router, db, sched, logger)
	return router, db
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTriggerJobEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/api/jobs", `{"source_id":"suumo","region_code":"13"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["job_id"])

	// Same source and region while the first is outstanding
	w = doRequest(router, http.MethodPost, "/api/jobs", `{"source_id":"suumo","region_code":"13"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTriggerJobEndpointValidation(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/api/jobs", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, "/api/jobs", `{"source_id":"nope"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodPost, "/api/jobs", `{"source_id":"athome"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetJobEndpoint(t *testing.T) {
	router, db := setupRouter(t)

	require.NoError(t, db.CreateJob(&models.Job{ID: "j-1", SourceID: "suumo", RegionCode: "13"}))

	w := doRequest(router, http.MethodGet, "/api/jobs/j-1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var job models.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, models.JobStatusPending, job.Status)

	w = doRequest(router, http.MethodGet, "/api/jobs/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListJobsEndpoint(t *testing.T) {
	router, db := setupRouter(t)

	require.NoError(t, db.CreateJob(&models.Job{ID: "j-1", SourceID: "suumo", RegionCode: "13"}))
	require.NoError(t, db.CreateJob(&models.Job{ID: "j-2", SourceID: "suumo", RegionCode: "27"}))

	w := doRequest(router, http.MethodGet, "/api/jobs?source_id=suumo", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var jobs []models.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &jobs))
	assert.Len(t, jobs, 2)

	w = doRequest(router, http.MethodGet, "/api/jobs?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelJobEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/api/jobs/missing/cancel", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router, db := setupRouter(t)

	require.NoError(t, db.CreateJob(&models.Job{ID: "j-1", SourceID: "suumo", RegionCode: "13"}))
	claimed, err := db.ClaimJob("j-1")
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, db.FinishJob("j-1", models.JobStatusCompleted, "", database.JobCounts{Found: 12, New: 5}))

	w := doRequest(router, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var summary models.HealthSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	// Disabled sources do not appear in the report.
	require.Len(t, summary.Sources, 1)
	assert.Equal(t, "suumo", summary.Sources[0].SourceID)
	assert.Equal(t, 12, summary.Sources[0].LastFound)
	assert.Equal(t, 5, summary.Sources[0].LastNew)
	assert.NotNil(t, summary.Sources[0].LastCompletedAt)
}

func TestSourcesEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/sources", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var sources []models.Source
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sources))
	assert.Len(t, sources, 2)
}

func TestPropertyEndpoints(t *testing.T) {
	router, db := setupRouter(t)

	prop := models.Property{AddressJa: "東京都新宿区1-2-3", PrefectureCode: "13", PriceJPY: 3_500_000, Status: models.StatusActive}
	require.NoError(t, db.GetDB().Create(&prop).Error)

	w := doRequest(router, http.MethodGet, "/api/properties?region_code=13", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var props []models.Property
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &props))
	assert.Len(t, props, 1)

	w = doRequest(router, http.MethodGet, "/api/properties/1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/properties/999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodGet, "/api/properties/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSchedulerEndpoints(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/api/scheduler/start", `{"interval_hours":12}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(12), resp["interval_hours"])

	w = doRequest(router, http.MethodPost, "/api/scheduler/start", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodPost, "/api/scheduler/stop", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

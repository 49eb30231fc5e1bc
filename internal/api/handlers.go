package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"akiyascout/server/internal/database"
	"akiyascout/server/internal/scheduler"
)

type Handler struct {
	db        *database.Database
	scheduler *scheduler.Scheduler
	logger    *logrus.Logger
}

type TriggerRequest struct {
	SourceID   string `json:"source_id" binding:"required"`
	RegionCode string `json:"region_code"`
}

type SchedulerStartRequest struct {
	IntervalHours int `json:"interval_hours"`
}

func NewHandler(db *database.Database, sched *scheduler.Scheduler, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:        db,
		scheduler: sched,
		logger:    logger,
	}
}

// parseLimit reads the optional limit query parameter. Writes the error
// response itself when the value is unusable.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return parsed, true
}

func (h *Handler) TriggerJob(c *gin.Context) {
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_id is required"})
		return
	}

	job, err := h.scheduler.TriggerJob(req.SourceID, req.RegionCode)
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrUnknownSource):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown source"})
		case errors.Is(err, scheduler.ErrSourceDisabled):
			c.JSON(http.StatusConflict, gin.H{"error": "source is disabled"})
		case errors.Is(err, database.ErrJobOutstanding):
			c.JSON(http.StatusConflict, gin.H{"error": "a job for this source and region is already outstanding"})
		default:
			h.logger.WithError(err).Error("Failed to trigger job")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to trigger job"})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}

func (h *Handler) GetJob(c *gin.Context) {
	job, err := h.db.GetJob(c.Param("id"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to get job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get job"})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, job)
}

func (h *Handler) ListJobs(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	jobs, err := h.db.ListJobs(c.Query("source_id"), c.Query("status"), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list jobs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list jobs"})
		return
	}

	c.JSON(http.StatusOK, jobs)
}

func (h *Handler) CancelJob(c *gin.Context) {
	err := h.scheduler.CancelJob(c.Param("id"))
	if errors.Is(err, scheduler.ErrJobNotRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": "job is not running"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "cancelling"})
}

func (h *Handler) GetHealth(c *gin.Context) {
	summary, err := h.db.GetHealthSummary()
	if err != nil {
		h.logger.WithError(err).Error("Failed to build health summary")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build health summary"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) ListSources(c *gin.Context) {
	sources, err := h.db.ListSources()
	if err != nil {
		h.logger.WithError(err).Error("Failed to list sources")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sources"})
		return
	}

	c.JSON(http.StatusOK, sources)
}

func (h *Handler) ListProperties(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	properties, err := h.db.ListProperties(c.Query("region_code"), c.Query("status"), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list properties")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list properties"})
		return
	}

	c.JSON(http.StatusOK, properties)
}

func (h *Handler) ListListings(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	listings, err := h.db.ListListings(c.Query("source_id"), c.Query("status"), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list listings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list listings"})
		return
	}

	c.JSON(http.StatusOK, listings)
}

func (h *Handler) GetProperty(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "property id must be numeric"})
		return
	}

	prop, err := h.db.GetProperty(id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get property")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get property"})
		return
	}
	if prop == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
		return
	}

	c.JSON(http.StatusOK, prop)
}

func (h *Handler) StartScheduler(c *gin.Context) {
	// An empty or absent body means "use the default interval".
	var req SchedulerStartRequest
	_ = c.ShouldBindJSON(&req)
	if req.IntervalHours < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval_hours must be positive"})
		return
	}
	if req.IntervalHours == 0 {
		req.IntervalHours = 24
	}

	if err := h.scheduler.StartTicker(time.Duration(req.IntervalHours) * time.Hour); err != nil {
		h.logger.WithError(err).Error("Failed to start scheduler")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start scheduler"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "started", "interval_hours": req.IntervalHours})
}

func (h *Handler) StopScheduler(c *gin.Context) {
	h.scheduler.StopTicker()
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

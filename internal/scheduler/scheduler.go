package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"akiyascout/server/internal/adapter"
	"akiyascout/server/internal/database"
	"akiyascout/server/internal/governor"
	"akiyascout/server/internal/ingest"
	"akiyascout/server/internal/models"
)

// ErrSourceDisabled is returned when an on-demand job targets a disabled source.
var ErrSourceDisabled = errors.New("source is disabled")

// ErrUnknownSource is returned when a job targets a source not in the catalogue.
var ErrUnknownSource = errors.New("unknown source")

// ErrJobNotRunning is returned when cancellation targets a job that is not running.
var ErrJobNotRunning = errors.New("job is not running")

// AdapterFactory builds the adapter for a source. Injectable for tests.
type AdapterFactory func(src models.Source) (adapter.Adapter, error)

// Scheduler owns the job lifecycle: the recurring tick that fills the
// (source x region) task universe, the dispatcher that claims pending jobs
// under per-source concurrency caps, and the workers that run them.
type Scheduler struct {
	db           *database.Database
	pipeline     *ingest.Pipeline
	governor     *governor.Governor
	logger       *logrus.Logger
	pollInterval time.Duration
	newAdapter   AdapterFactory

	cron      *cron.Cron
	cronEntry cron.EntryID
	cronMu    sync.Mutex
	ticking   bool

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu              sync.Mutex
	runningBySource map[string]int
	cancels         map[string]context.CancelFunc
}

func NewScheduler(
	db *database.Database,
	pipeline *ingest.Pipeline,
	gov *governor.Governor,
	logger *logrus.Logger,
	pollInterval time.Duration,
) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	s := &Scheduler{
		db:              db,
		pipeline:        pipeline,
		governor:        gov,
		logger:          logger,
		pollInterval:    pollInterval,
		cron:            cron.New(),
		stopChan:        make(chan struct{}),
		runningBySource: make(map[string]int),
		cancels:         make(map[string]context.CancelFunc),
	}
	s.newAdapter = func(src models.Source) (adapter.Adapter, error) {
		return adapter.New(src, gov, logger)
	}
	return s
}

// SetAdapterFactory replaces adapter construction, used by tests.
func (s *Scheduler) SetAdapterFactory(f AdapterFactory) {
	s.newAdapter = f
}

// Start launches the dispatcher loop and the cron runner. The recurring tick
// itself is started separately via StartTicker.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.wg.Add(1)
	go s.dispatchLoop()
}

// Stop halts the tick, cancels running jobs and waits for workers to finish.
func (s *Scheduler) Stop() {
	s.StopTicker()
	s.cron.Stop()
	s.stopOnce.Do(func() { close(s.stopChan) })

	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// StartTicker begins (or retunes) the recurring tick. Idempotent: calling it
// again replaces the existing schedule.
func (s *Scheduler) StartTicker(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}

	s.cronMu.Lock()
	defer s.cronMu.Unlock()

	if s.ticking {
		s.cron.Remove(s.cronEntry)
	}
	entry, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if err := s.Tick(); err != nil {
			s.logger.WithError(err).Error("Scheduler tick failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule tick: %w", err)
	}
	s.cronEntry = entry
	s.ticking = true
	s.logger.WithField("interval", interval.String()).Info("Scheduler tick started")
	return nil
}

// StopTicker halts the recurring tick. Idempotent. Running jobs continue.
func (s *Scheduler) StopTicker() {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	if s.ticking {
		s.cron.Remove(s.cronEntry)
		s.ticking = false
		s.logger.Info("Scheduler tick stopped")
	}
}

// TickerRunning reports whether the recurring tick is active.
func (s *Scheduler) TickerRunning() bool {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	return s.ticking
}

// Tick enqueues a pending job for every enabled source and every region the
// source shards over, unless an equivalent job is already outstanding or the
// source completed a job within its own crawl interval. The outstanding
// check is not a read-then-write: the partial unique index makes it atomic
// with the insert, so overlapping ticks cannot double-schedule.
func (s *Scheduler) Tick() error {
	sources, err := s.db.ListEnabledSources()
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}
	regions, err := s.db.ListRegions()
	if err != nil {
		return fmt.Errorf("failed to list regions: %w", err)
	}

	for _, src := range sources {
		last, err := s.db.LastCompletedJob(src.ID)
		if err != nil {
			return err
		}
		if last != nil && last.CompletedAt != nil {
			interval := time.Duration(src.DefaultIntervalHours) * time.Hour
			if time.Since(*last.CompletedAt) < interval {
				s.logger.WithField("source", src.ID).Debug("Recently scraped, skipping")
				continue
			}
		}

		if !src.ShardByRegion {
			s.enqueue(src.ID, "")
			continue
		}
		for _, region := range regions {
			s.enqueue(src.ID, region.Code)
		}
	}
	return nil
}

func (s *Scheduler) enqueue(sourceID, regionCode string) {
	job := &models.Job{
		ID:         uuid.NewString(),
		SourceID:   sourceID,
		RegionCode: regionCode,
	}
	err := s.db.CreateJob(job)
	if errors.Is(err, database.ErrJobOutstanding) {
		s.logger.WithFields(logrus.Fields{
			"source": sourceID,
			"region": regionCode,
		}).Debug("Job already outstanding, skipping")
		return
	}
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"source": sourceID,
			"region": regionCode,
		}).Error("Failed to enqueue job")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"job_id": job.ID,
		"source": sourceID,
		"region": regionCode,
	}).Info("Job enqueued")
}

// TriggerJob creates an on-demand pending job. It competes for the same
// per-source worker slots as scheduled jobs. An empty regionCode means the
// whole source in one job.
func (s *Scheduler) TriggerJob(sourceID, regionCode string) (*models.Job, error) {
	src, err := s.db.GetSource(sourceID)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, ErrUnknownSource
	}
	if !src.Enabled {
		return nil, ErrSourceDisabled
	}

	job := &models.Job{
		ID:         uuid.NewString(),
		SourceID:   sourceID,
		RegionCode: regionCode,
	}
	if err := s.db.CreateJob(job); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"job_id": job.ID,
		"source": sourceID,
		"region": regionCode,
	}).Info("On-demand job enqueued")
	return job, nil
}

// CancelJob flags a running job for cooperative cancellation. The worker
// notices between records, keeps what is already committed and finishes the
// job as failed with a "cancelled" message.
func (s *Scheduler) CancelJob(jobID string) error {
	s.mu.Lock()
	cancel, ok := s.cancels[jobID]
	s.mu.Unlock()
	if !ok {
		return ErrJobNotRunning
	}
	cancel()
	return nil
}

func (s *Scheduler) dispatchLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.dispatch()
		}
	}
}

// dispatch claims pending jobs for sources with free slots. The in-memory
// slot count bounds concurrency; the conditional UPDATE in ClaimJob keeps the
// claim itself atomic.
func (s *Scheduler) dispatch() {
	jobs, err := s.db.ListPendingJobs()
	if err != nil {
		s.logger.WithError(err).Error("Failed to list pending jobs")
		return
	}
	if len(jobs) == 0 {
		return
	}

	sources := make(map[string]*models.Source)
	for _, job := range jobs {
		src, ok := sources[job.SourceID]
		if !ok {
			src, err = s.db.GetSource(job.SourceID)
			if err != nil || src == nil {
				continue
			}
			sources[job.SourceID] = src
		}
		if !src.Enabled {
			continue
		}

		s.mu.Lock()
		if s.runningBySource[job.SourceID] >= src.MaxConcurrentJobs {
			s.mu.Unlock()
			continue
		}
		s.runningBySource[job.SourceID]++
		s.mu.Unlock()

		claimed, err := s.db.ClaimJob(job.ID)
		if err != nil || !claimed {
			s.mu.Lock()
			s.runningBySource[job.SourceID]--
			s.mu.Unlock()
			if err != nil {
				s.logger.WithError(err).WithField("job_id", job.ID).Error("Failed to claim job")
			}
			continue
		}

		s.wg.Add(1)
		go s.runJob(job, *src)
	}
}

func (s *Scheduler) runJob(job models.Job, src models.Source) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[job.ID] = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.cancels, job.ID)
		s.runningBySource[job.SourceID]--
		s.mu.Unlock()
	}()

	log := s.logger.WithFields(logrus.Fields{
		"job_id": job.ID,
		"source": job.SourceID,
		"region": job.RegionCode,
	})
	log.Info("Job started")

	counts := database.JobCounts{}
	fail := func(msg string) {
		if err := s.db.FinishJob(job.ID, models.JobStatusFailed, msg, counts); err != nil {
			log.WithError(err).Error("Failed to record job failure")
		}
		log.WithField("error", msg).Error("Job failed")
	}

	ad, err := s.newAdapter(src)
	if err != nil {
		fail(err.Error())
		return
	}

	stream, err := ad.Stream(ctx, job.RegionCode)
	if err != nil {
		// Adapter-level failure before iteration: captured verbatim, no
		// automatic retry.
		fail(err.Error())
		return
	}
	defer stream.Close()

	counts, err = s.pipeline.Run(ctx, &job, stream)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fail("cancelled")
		} else {
			fail(err.Error())
		}
		return
	}

	if err := s.db.FinishJob(job.ID, models.JobStatusCompleted, "", counts); err != nil {
		log.WithError(err).Error("Failed to record job completion")
		return
	}
	log.WithFields(logrus.Fields{
		"found":   counts.Found,
		"new":     counts.New,
		"updated": counts.Updated,
		"skipped": counts.Skipped,
	}).Info("Job completed")

	if err := s.pipeline.MarkStale(job.SourceID, job.RegionCode); err != nil {
		log.WithError(err).Error("Failed to mark stale listings")
	}
}

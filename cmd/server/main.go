package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"akiyascout/server/config"
	"akiyascout/server/internal/api"
	"akiyascout/server/internal/database"
	"akiyascout/server/internal/enrich"
	"akiyascout/server/internal/geocoding"
	"akiyascout/server/internal/governor"
	"akiyascout/server/internal/ingest"
	"akiyascout/server/internal/queue"
	"akiyascout/server/internal/regions"
	"akiyascout/server/internal/scheduler"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	logger.Infof("Using database at: %s", cfg.DatabasePath)
	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	if err := db.SeedRegions(config.Prefectures); err != nil {
		logger.WithError(err).Fatal("Failed to seed prefectures")
	}

	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load source catalogue")
	}
	if err := db.SeedSources(sources); err != nil {
		logger.WithError(err).Fatal("Failed to seed sources")
	}

	// Jobs left running by an unclean shutdown would block their source and
	// region until someone noticed.
	if n, err := db.FailInterruptedJobs(); err != nil {
		logger.WithError(err).Fatal("Failed to recover interrupted jobs")
	} else if n > 0 {
		logger.Warnf("Marked %d interrupted job(s) as failed", n)
	}

	gov := governor.New(logger)
	for _, src := range sources {
		gov.Configure(src.ID, time.Duration(src.CrawlDelaySeconds)*time.Second, src.MaxInFlightRequests)
	}

	cacheDir := cfg.Enrichment.GeocodeCacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "akiyascout", "geocode_cache")
	}
	geocoder := geocoding.NewGeocoder(logger, cacheDir)

	tasks := queue.NewTaskQueue(cfg.Enrichment.QueueSize, logger)
	hooks := enrich.NewHooks(
		db,
		tasks,
		enrich.NewTranslator(cfg.Enrichment.TranslateAPIKey),
		geocoder,
		enrich.NewImageStore(cfg.Enrichment.ImageStorageDir),
		logger,
	)
	hooks.Start(cfg.Enrichment.WorkerCount)
	defer hooks.Stop()

	resolver := regions.NewResolver(config.Prefectures)
	pipeline := ingest.NewPipeline(db, resolver, hooks, logger, cfg.Ingest.BatchSize, cfg.Ingest.StaleAfterJobs)

	sched := scheduler.NewScheduler(db, pipeline, gov, logger,
		time.Duration(cfg.Scheduler.DispatchPollSeconds)*time.Second)
	sched.Start()
	defer sched.Stop()

	if cfg.Scheduler.AutoStart {
		interval := time.Duration(cfg.Scheduler.IntervalHours * float64(time.Hour))
		if err := sched.StartTicker(interval); err != nil {
			logger.WithError(err).Fatal("Failed to start scheduler tick")
		}
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
	}))
	api.SetupRoutes(router, db, sched, logger)

	go func() {
		logger.Infof("Starting server on port %d", cfg.Port)
		if err := router.Run(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")
}

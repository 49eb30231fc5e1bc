package config

import (
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP server port
	Port int `env:"PORT" envDefault:"5250"`

	// Path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" envDefault:"database/akiyascout.db"`

	// Optional YAML source catalogue; built-in defaults are used when absent
	SourcesFile string `env:"SOURCES_FILE" envDefault:"config/sources.yaml"`

	Ingest struct {
		// Records per incremental commit; a crash loses at most this much progress
		BatchSize int `env:"INGEST_BATCH_SIZE" envDefault:"25"`

		// Listings not re-observed across this many completed jobs go stale
		StaleAfterJobs int `env:"INGEST_STALE_AFTER_JOBS" envDefault:"3"`
	}

	Scheduler struct {
		// Interval between scheduler ticks, in hours
		IntervalHours float64 `env:"SCHEDULER_INTERVAL_HOURS" envDefault:"24"`

		// Start the recurring tick at boot
		AutoStart bool `env:"SCHEDULER_AUTO_START" envDefault:"true"`

		// How often the dispatcher looks for claimable pending jobs, in seconds
		DispatchPollSeconds int `env:"SCHEDULER_DISPATCH_POLL_SECONDS" envDefault:"5"`
	}

	Enrichment struct {
		QueueSize   int `env:"ENRICH_QUEUE_SIZE" envDefault:"256"`
		WorkerCount int `env:"ENRICH_WORKER_COUNT" envDefault:"2"`

		// Empty means the translation hook no-ops
		TranslateAPIKey string `env:"TRANSLATE_API_KEY"`

		// Empty means images keep their remote URLs
		ImageStorageDir string `env:"IMAGE_STORAGE_DIR"`

		GeocodeCacheDir string `env:"GEOCODE_CACHE_DIR"`
	}
}

func LoadConfig() (*Config, error) {
	// A missing .env file is fine; system env vars still apply
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

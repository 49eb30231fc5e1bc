package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"akiyascout/server/internal/models"
)

type sourceCatalogue struct {
	Sources []sourceSpec `yaml:"sources"`
}

type sourceSpec struct {
	ID                   string  `yaml:"id"`
	DisplayName          string  `yaml:"display_name"`
	BaseURL              string  `yaml:"base_url"`
	Enabled              *bool   `yaml:"enabled"`
	DefaultIntervalHours int     `yaml:"default_interval_hours"`
	CrawlDelaySeconds    float64 `yaml:"crawl_delay_seconds"`
	MaxConcurrentJobs    int     `yaml:"max_concurrent_jobs"`
	MaxInFlightRequests  int     `yaml:"max_in_flight_requests"`
	ShardByRegion        *bool   `yaml:"shard_by_region"`
}

// DefaultSources is the built-in portal catalogue, used when no YAML
// catalogue file is present.
var DefaultSources = []models.Source{
	{
		ID:                   "suumo",
		DisplayName:          "SUUMO (スーモ)",
		BaseURL:              "https://suumo.jp/",
		Enabled:              true,
		DefaultIntervalHours: 24,
		CrawlDelaySeconds:    30,
		MaxConcurrentJobs:    3,
		MaxInFlightRequests:  1,
		ShardByRegion:        true,
	},
	{
		ID:                   "homes",
		DisplayName:          "LIFULL HOME'S",
		BaseURL:              "https://www.homes.co.jp/",
		Enabled:              true,
		DefaultIntervalHours: 24,
		CrawlDelaySeconds:    15,
		MaxConcurrentJobs:    3,
		MaxInFlightRequests:  1,
		ShardByRegion:        true,
	},
	{
		ID:                   "athome",
		DisplayName:          "at home (アットホーム)",
		BaseURL:              "https://www.athome.co.jp/",
		Enabled:              true,
		DefaultIntervalHours: 48,
		CrawlDelaySeconds:    15,
		MaxConcurrentJobs:    3,
		MaxInFlightRequests:  1,
		ShardByRegion:        true,
	},
	{
		ID:                   "akiya",
		DisplayName:          "Akiya Banks (空き家バンク)",
		BaseURL:              "https://www.akiya-athome.jp/",
		Enabled:              true,
		DefaultIntervalHours: 168,
		CrawlDelaySeconds:    5,
		MaxConcurrentJobs:    2,
		MaxInFlightRequests:  1,
		ShardByRegion:        true,
	},
	{
		ID:                   "bit",
		DisplayName:          "BIT Court Auctions (裁判所競売)",
		BaseURL:              "https://www.bit.courts.go.jp/",
		Enabled:              true,
		DefaultIntervalHours: 72,
		CrawlDelaySeconds:    10,
		MaxConcurrentJobs:    1,
		MaxInFlightRequests:  1,
		ShardByRegion:        false,
	},
}

// LoadSources reads the YAML source catalogue at path. A missing file returns
// the built-in defaults; a present but unparseable file is an error so a
// broken deploy is noticed rather than silently reverting to defaults.
func LoadSources(path string) ([]models.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSources, nil
		}
		return nil, fmt.Errorf("failed to read source catalogue: %w", err)
	}

	var cat sourceCatalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse source catalogue: %w", err)
	}
	if len(cat.Sources) == 0 {
		return DefaultSources, nil
	}

	sources := make([]models.Source, 0, len(cat.Sources))
	for _, spec := range cat.Sources {
		if spec.ID == "" {
			return nil, fmt.Errorf("source catalogue entry missing id")
		}
		src := models.Source{
			ID:                   spec.ID,
			DisplayName:          spec.DisplayName,
			BaseURL:              spec.BaseURL,
			Enabled:              true,
			DefaultIntervalHours: spec.DefaultIntervalHours,
			CrawlDelaySeconds:    spec.CrawlDelaySeconds,
			MaxConcurrentJobs:    spec.MaxConcurrentJobs,
			MaxInFlightRequests:  spec.MaxInFlightRequests,
			ShardByRegion:        true,
		}
		if spec.Enabled != nil {
			src.Enabled = *spec.Enabled
		}
		if spec.ShardByRegion != nil {
			src.ShardByRegion = *spec.ShardByRegion
		}
		if src.DefaultIntervalHours <= 0 {
			src.DefaultIntervalHours = 24
		}
		if src.CrawlDelaySeconds <= 0 {
			src.CrawlDelaySeconds = 5
		}
		if src.MaxConcurrentJobs <= 0 {
			src.MaxConcurrentJobs = 3
		}
		if src.MaxInFlightRequests <= 0 {
			src.MaxInFlightRequests = 1
		}
		sources = append(sources, src)
	}
	return sources, nil
}

package models

import "time"

// Job statuses. Transitions are monotonic: pending -> running -> completed|failed.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Listing / property statuses.
const (
	StatusActive = "active"
	StatusStale  = "stale"
)

// Source is one external listings portal (SUUMO, HOME'S, ...).
type Source struct {
	ID                   string  `gorm:"primaryKey;size:30" json:"id"`
	DisplayName          string  `gorm:"size:100" json:"display_name"`
	BaseURL              string  `gorm:"column:base_url" json:"base_url"`
	Enabled              bool    `json:"enabled"`
	DefaultIntervalHours int     `json:"default_interval_hours"`
	CrawlDelaySeconds    float64 `json:"crawl_delay_seconds"`
	MaxConcurrentJobs    int     `json:"max_concurrent_jobs"`
	MaxInFlightRequests  int     `json:"max_in_flight_requests"`
	ShardByRegion        bool    `json:"shard_by_region"`
}

// Region is a prefecture used to shard large sources into bounded jobs.
// Static reference data, seeded at startup.
type Region struct {
	Code        string  `gorm:"primaryKey;size:2" json:"code"`
	Name        string  `gorm:"size:30" json:"name"`
	NameJa      string  `gorm:"size:10" json:"name_ja"`
	CentroidLat float64 `json:"centroid_lat"`
	CentroidLng float64 `json:"centroid_lng"`
}

// Job is one execution of "scrape source S over region R".
// A job is never rerun in place; a retry is a new Job.
type Job struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	SourceID     string     `gorm:"size:30;index" json:"source_id"`
	RegionCode   string     `gorm:"size:2" json:"region_code"`
	Status       string     `gorm:"size:20;index;default:pending" json:"status"`
	Found        int        `json:"found"`
	New          int        `json:"new"`
	Updated      int        `json:"updated"`
	Skipped      int        `json:"skipped"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Property is the deduplicated physical-property entity. Multiple listings
// from different sources may point at the same row.
type Property struct {
	ID               int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	AddressJa        string     `json:"address_ja"`
	AddressEn        string     `json:"address_en,omitempty"`
	PrefectureCode   string     `gorm:"size:2;index" json:"prefecture_code"`
	MunicipalityCode string     `gorm:"size:5" json:"municipality_code,omitempty"`
	Latitude         *float64   `json:"latitude"`
	Longitude        *float64   `json:"longitude"`
	PriceJPY         int64      `gorm:"column:price_jpy" json:"price_jpy"`
	LandAreaSqm      *float64   `json:"land_area_sqm"`
	BuildingAreaSqm  *float64   `json:"building_area_sqm"`
	FloorPlan        string     `json:"floor_plan,omitempty"`
	YearBuilt        *int       `json:"year_built"`
	Structure        string     `json:"structure,omitempty"`
	Floors           *int       `json:"floors"`
	RoadWidthM       *float64   `gorm:"column:road_width_m" json:"road_width_m"`
	RebuildPossible  *bool      `json:"rebuild_possible"`
	UseZone          string     `json:"use_zone,omitempty"`
	PricePerSqm      *float64   `json:"price_per_sqm"`
	DescriptionJa    string     `json:"description_ja,omitempty"`
	DescriptionEn    string     `json:"description_en,omitempty"`
	Status           string     `gorm:"size:20;default:active" json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Listing is the source-attributed canonical record. (SourceID,
// SourceListingID) is the dedup key and is globally unique; the index is the
// backstop that turns a cross-job race into a normal skip.
type Listing struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID      int64     `gorm:"index" json:"property_id"`
	SourceID        string    `gorm:"size:30;uniqueIndex:uq_listings_source" json:"source_id"`
	SourceListingID string    `gorm:"size:100;uniqueIndex:uq_listings_source" json:"source_listing_id"`
	SourceURL       string    `gorm:"column:source_url" json:"source_url"`
	RawJSON         string    `gorm:"column:raw_json" json:"-"`
	Status          string    `gorm:"size:20;default:active" json:"status"`
	FirstSeenAt     time.Time `json:"first_seen_at"`
	LastSeenAt      time.Time `gorm:"index" json:"last_seen_at"`
}

// PropertyScore holds the coarse initial scores attached by the enrichment
// hook so a record is immediately usable downstream.
type PropertyScore struct {
	PropertyID     int64   `gorm:"primaryKey" json:"property_id"`
	ValueScore     float64 `json:"value_score"`
	ConditionScore float64 `json:"condition_score"`
	RebuildScore   float64 `json:"rebuild_score"`
	CompositeScore float64 `json:"composite_score"`
}

// PropertyImage records one transferred (or remote) image for a property.
type PropertyImage struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID  int64  `gorm:"index" json:"property_id"`
	StoragePath string `json:"storage_path"`
	SortOrder   int    `json:"sort_order"`
}

// RawListing is a provider-native record as yielded by a source adapter.
// Transient; consumed by the ingestion pipeline and not persisted as-is.
type RawListing struct {
	Source          string                 `json:"source"`
	SourceListingID string                 `json:"source_listing_id"`
	SourceURL       string                 `json:"source_url"`
	Title           string                 `json:"title,omitempty"`
	Price           *int64                 `json:"price"`
	Address         string                 `json:"address,omitempty"`
	Prefecture      string                 `json:"prefecture,omitempty"`
	Municipality    string                 `json:"municipality,omitempty"`
	LandAreaSqm     *float64               `json:"land_area_sqm"`
	BuildingAreaSqm *float64               `json:"building_area_sqm"`
	FloorPlan       string                 `json:"floor_plan,omitempty"`
	YearBuilt       *int                   `json:"year_built"`
	Structure       string                 `json:"structure,omitempty"`
	Floors          *int                   `json:"floors"`
	RoadWidthM      *float64               `json:"road_width_m"`
	RebuildPossible *bool                  `json:"rebuild_possible"`
	UseZone         string                 `json:"use_zone,omitempty"`
	Latitude        *float64               `json:"latitude"`
	Longitude       *float64               `json:"longitude"`
	ImageURLs       []string               `json:"image_urls,omitempty"`
	Raw             map[string]interface{} `json:"raw,omitempty"`
}

// SourceHealth is the per-source slice of the health report.
type SourceHealth struct {
	SourceID        string     `json:"source_id"`
	DisplayName     string     `json:"display_name"`
	LastCompletedAt *time.Time `json:"last_completed_at"`
	LastFound       int        `json:"last_found"`
	LastNew         int        `json:"last_new"`
	LastUpdated     int        `json:"last_updated"`
	LastSkipped     int        `json:"last_skipped"`
	RunningJobs     int        `json:"running_jobs"`
	PropertyCount   int64      `json:"property_count"`
}

// HealthSummary is the contract exposed to operators and monitoring.
type HealthSummary struct {
	Sources         []SourceHealth `json:"sources"`
	TotalProperties int64          `json:"total_properties"`
	TotalListings   int64          `json:"total_listings"`
}

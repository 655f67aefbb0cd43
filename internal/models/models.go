package models

import (
	"time"

	"github.com/google/uuid"
)

// SitemapSource is one configured sitemap to harvest, typically a site's
// root sitemap.xml or sitemap index.
type SitemapSource struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	SitemapURL    string     `json:"sitemapUrl"`
	UserAgent     string     `json:"userAgent"`
	FetchInterval string     `json:"fetchInterval"`
	MaxDepth      int        `json:"maxDepth"`
	MaxDocuments  int        `json:"maxDocuments"`
	FailurePolicy string     `json:"failurePolicy"`
	Status        string     `json:"status"`
	LastRun       *time.Time `json:"lastRun,omitempty"`
	NextRun       *time.Time `json:"nextRun,omitempty"`
	Errors        []string   `json:"errors,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// DiscoveredURL is one page entry extracted from a source's sitemap tree,
// persisted with the sitemap metadata that came with it. Probe fields are
// filled in when reachability probing is enabled.
type DiscoveredURL struct {
	ID         uuid.UUID  `json:"id"`
	SourceID   uuid.UUID  `json:"source_id"`
	Location   string     `json:"location"`
	LastMod    *time.Time `json:"last_mod,omitempty"`
	ChangeFreq string     `json:"change_freq,omitempty"`
	Priority   *float64   `json:"priority,omitempty"`
	Title      string     `json:"title,omitempty"`
	StatusCode int        `json:"status_code,omitempty"`
	FirstSeen  time.Time  `json:"first_seen"`
	LastSeen   time.Time  `json:"last_seen"`
}

// HarvestRun records the outcome of one walk over a source's sitemap tree.
type HarvestRun struct {
	ID               uuid.UUID `json:"id"`
	SourceID         uuid.UUID `json:"source_id"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	URLsFound        int       `json:"urls_found"`
	DocumentsFetched int       `json:"documents_fetched"`
	SkippedRecords   int       `json:"skipped_records"`
	ErrorCount       int       `json:"error_count"`
	Errors           []string  `json:"errors,omitempty"`
}

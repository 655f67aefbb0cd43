package harvester

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/romangod6/sitemap-harvester/internal/models"
	"github.com/romangod6/sitemap-harvester/internal/sitemap"
	"github.com/romangod6/sitemap-harvester/internal/storage"
)

// Config carries fallbacks applied when a source leaves a knob unset.
type Config struct {
	MaxDepth      int
	MaxDocuments  int
	FailurePolicy string
	Timeout       time.Duration
}

// Harvester walks a source's sitemap tree and persists what it finds.
type Harvester struct {
	store   storage.Store
	fetcher sitemap.Fetcher
	config  *Config
}

func New(store storage.Store, fetcher sitemap.Fetcher, config *Config) *Harvester {
	return &Harvester{
		store:   store,
		fetcher: fetcher,
		config:  config,
	}
}

// ParsePolicy maps the configuration spelling of a failure policy to the
// engine's. Unrecognized values fall back to skip-and-continue.
func ParsePolicy(s string) sitemap.FailurePolicy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "abort", "abortall", "abort_all":
		return sitemap.AbortAll
	default:
		return sitemap.SkipAndContinue
	}
}

// Harvest runs one walk over the source's sitemap and upserts every page
// entry. Subtree failures are collected on the run record; only a fatal walk
// error or a storage failure is returned.
func (h *Harvester) Harvest(ctx context.Context, source *models.SitemapSource) (*models.HarvestRun, error) {
	run := &models.HarvestRun{
		ID:        uuid.New(),
		SourceID:  source.ID,
		StartedAt: time.Now(),
	}

	maxDepth := source.MaxDepth
	if maxDepth == 0 {
		maxDepth = h.config.MaxDepth
	}
	maxDocs := source.MaxDocuments
	if maxDocs == 0 {
		maxDocs = h.config.MaxDocuments
	}
	policy := source.FailurePolicy
	if policy == "" {
		policy = h.config.FailurePolicy
	}

	timeout := h.config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	harvestCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	walker := sitemap.NewWalker(source.SitemapURL, h.fetcher, sitemap.Options{
		Policy:       ParsePolicy(policy),
		MaxDepth:     maxDepth,
		MaxDocuments: maxDocs,
	})

	var fatal error
	now := time.Now()
	for {
		entry, err := walker.Next(harvestCtx)
		if errors.Is(err, sitemap.ErrDone) {
			break
		}
		if err != nil {
			var we *sitemap.WalkError
			if !errors.As(err, &we) {
				fatal = err
				break
			}
			log.Printf("Harvest error for %s: %v", source.SitemapURL, we)
			run.Errors = append(run.Errors, we.Error())
			if we.Fatal() {
				fatal = we
				break
			}
			continue
		}

		if err := h.store.UpsertURL(harvestCtx, entryToURL(source.ID, entry, now)); err != nil {
			return run, fmt.Errorf("failed to store URL %s: %w", entry.Location, err)
		}
		if n := walker.Stats().Entries; n%1000 == 0 {
			log.Printf("Harvested %d URLs from %s", n, source.SitemapURL)
		}
	}

	stats := walker.Stats()
	run.FinishedAt = time.Now()
	run.URLsFound = stats.Entries
	run.DocumentsFetched = stats.DocumentsFetched
	run.SkippedRecords = stats.SkippedRecords
	run.ErrorCount = stats.Errors

	if err := h.store.CreateHarvestRun(ctx, run); err != nil {
		log.Printf("Failed to record harvest run for %s: %v", source.SitemapURL, err)
	}

	if fatal != nil {
		return run, fmt.Errorf("harvest of %s aborted: %w", source.SitemapURL, fatal)
	}
	return run, nil
}

// entryToURL converts an engine entry into its persisted form. The raw
// changefreq text survives for unknown values so nothing is lost.
func entryToURL(sourceID uuid.UUID, entry *sitemap.Entry, seen time.Time) *models.DiscoveredURL {
	url := &models.DiscoveredURL{
		ID:        uuid.New(),
		SourceID:  sourceID,
		Location:  entry.Location,
		Priority:  entry.Priority,
		FirstSeen: seen,
		LastSeen:  seen,
	}
	if !entry.LastModTime.IsZero() {
		t := entry.LastModTime
		url.LastMod = &t
	}
	switch entry.ChangeFreq {
	case sitemap.FreqUnset:
	case sitemap.FreqUnknown:
		url.ChangeFreq = entry.ChangeFreqRaw
	default:
		url.ChangeFreq = entry.ChangeFreq.String()
	}
	return url
}

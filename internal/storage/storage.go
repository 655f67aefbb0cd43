package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/romangod6/sitemap-harvester/internal/models"
)

type Store interface {
	Initialize() error
	Close() error

	// Source operations
	CreateSource(ctx context.Context, source *models.SitemapSource) error
	GetSource(ctx context.Context, id uuid.UUID) (*models.SitemapSource, error)
	ListSources(ctx context.Context) ([]*models.SitemapSource, error)
	UpdateSource(ctx context.Context, source *models.SitemapSource) error
	DeleteSource(ctx context.Context, id uuid.UUID) error

	// Discovered URL operations
	UpsertURL(ctx context.Context, url *models.DiscoveredURL) error
	ListURLs(ctx context.Context, sourceID uuid.UUID, limit, offset int) ([]*models.DiscoveredURL, error)
	SearchURLs(ctx context.Context, query string, limit, offset int) ([]*models.DiscoveredURL, error)
	CountURLs(ctx context.Context, sourceID uuid.UUID) (int, error)
	SetProbeResult(ctx context.Context, sourceID uuid.UUID, location string, statusCode int, title string) error

	// Harvest run operations
	CreateHarvestRun(ctx context.Context, run *models.HarvestRun) error
	ListHarvestRuns(ctx context.Context, sourceID uuid.UUID, limit int) ([]*models.HarvestRun, error)
}

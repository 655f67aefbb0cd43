package models

import (
	"time"

	"github.com/google/uuid"
)

// NewSitemapSource creates a source with a generated UUID and timestamps.
func NewSitemapSource(name, sitemapURL string) *SitemapSource {
	now := time.Now()
	return &SitemapSource{
		ID:         uuid.New(),
		Name:       name,
		SitemapURL: sitemapURL,
		Status:     "Idle",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

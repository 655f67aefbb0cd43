package harvester

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/romangod6/sitemap-harvester/internal/models"
	"github.com/romangod6/sitemap-harvester/internal/sitemap"
	"github.com/romangod6/sitemap-harvester/internal/storage"
)

// memStore records what the harvester writes. The embedded nil Store panics
// on anything the harvester should not be calling.
type memStore struct {
	storage.Store
	urls []*models.DiscoveredURL
	runs []*models.HarvestRun
}

func (m *memStore) UpsertURL(_ context.Context, url *models.DiscoveredURL) error {
	m.urls = append(m.urls, url)
	return nil
}

func (m *memStore) CreateHarvestRun(_ context.Context, run *models.HarvestRun) error {
	m.runs = append(m.runs, run)
	return nil
}

func docFetcher(docs map[string]string) sitemap.Fetcher {
	return sitemap.FetcherFunc(func(_ context.Context, location string) (io.ReadCloser, error) {
		doc, ok := docs[location]
		if !ok {
			return nil, fmt.Errorf("no document for %s", location)
		}
		return io.NopCloser(strings.NewReader(doc)), nil
	})
}

func TestHarvestStoresEntries(t *testing.T) {
	docs := map[string]string{
		"https://example.com/sitemap.xml": `<sitemapindex>
  <sitemap><loc>https://example.com/a.xml</loc></sitemap>
  <sitemap><loc>https://example.com/b.xml</loc></sitemap>
</sitemapindex>`,
		"https://example.com/a.xml": `<urlset>
  <url><loc>https://example.com/1</loc><changefreq>daily</changefreq><priority>0.9</priority></url>
  <url><loc>https://example.com/2</loc><lastmod>2024-03-01</lastmod></url>
</urlset>`,
		"https://example.com/b.xml": `<urlset>
  <url><loc>https://example.com/3</loc><changefreq>fortnightly</changefreq></url>
</urlset>`,
	}

	store := &memStore{}
	h := New(store, docFetcher(docs), &Config{MaxDepth: 5, MaxDocuments: 50, Timeout: time.Minute})

	source := models.NewSitemapSource("example", "https://example.com/sitemap.xml")
	run, err := h.Harvest(context.Background(), source)
	if err != nil {
		t.Fatalf("Harvest: %v", err)
	}

	var locs []string
	for _, u := range store.urls {
		locs = append(locs, u.Location)
	}
	want := []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"}
	if diff := cmp.Diff(want, locs); diff != "" {
		t.Errorf("stored URLs mismatch (-want +got):\n%s", diff)
	}

	if store.urls[0].ChangeFreq != "daily" || store.urls[0].Priority == nil || *store.urls[0].Priority != 0.9 {
		t.Errorf("entry metadata lost: %+v", store.urls[0])
	}
	if store.urls[1].LastMod == nil {
		t.Error("lastmod not carried into stored URL")
	}
	// Unknown changefreq keeps the document's spelling.
	if store.urls[2].ChangeFreq != "fortnightly" {
		t.Errorf("ChangeFreq = %q, want fortnightly", store.urls[2].ChangeFreq)
	}

	if run.URLsFound != 3 || run.DocumentsFetched != 3 || run.ErrorCount != 0 {
		t.Errorf("run stats off: %+v", run)
	}
	if len(store.runs) != 1 {
		t.Errorf("expected one recorded run, got %d", len(store.runs))
	}
}

func TestHarvestCollectsSubtreeErrors(t *testing.T) {
	docs := map[string]string{
		"root": `<sitemapindex>
  <sitemap><loc>missing</loc></sitemap>
  <sitemap><loc>ok</loc></sitemap>
</sitemapindex>`,
		"ok": `<urlset><url><loc>https://example.com/1</loc></url></urlset>`,
	}

	store := &memStore{}
	h := New(store, docFetcher(docs), &Config{MaxDepth: 5, MaxDocuments: 50, Timeout: time.Minute})

	source := models.NewSitemapSource("example", "root")
	run, err := h.Harvest(context.Background(), source)
	if err != nil {
		t.Fatalf("Harvest should tolerate subtree failures, got %v", err)
	}

	if len(store.urls) != 1 {
		t.Errorf("got %d URLs, want 1", len(store.urls))
	}
	if run.ErrorCount != 1 || len(run.Errors) != 1 {
		t.Errorf("expected one collected error, got %+v", run)
	}
	if !strings.Contains(run.Errors[0], string(sitemap.CodeFetchFailed)) {
		t.Errorf("error not classified as fetch failure: %s", run.Errors[0])
	}
}

func TestHarvestFatalOnLimit(t *testing.T) {
	docs := map[string]string{
		"root": `<sitemapindex><sitemap><loc>inner</loc></sitemap></sitemapindex>`,
		"inner": `<sitemapindex><sitemap><loc>leaf</loc></sitemap></sitemapindex>`,
		"leaf": `<urlset><url><loc>https://example.com/1</loc></url></urlset>`,
	}

	store := &memStore{}
	h := New(store, docFetcher(docs), &Config{MaxDepth: 5, MaxDocuments: 50, Timeout: time.Minute})

	source := models.NewSitemapSource("example", "root")
	source.MaxDepth = 1

	_, err := h.Harvest(context.Background(), source)
	var we *sitemap.WalkError
	if !errors.As(err, &we) || we.Code != sitemap.CodeLimitExceeded {
		t.Errorf("Harvest error = %v, want TRAVERSAL_LIMIT_EXCEEDED", err)
	}
	if len(store.urls) != 0 {
		t.Errorf("no URLs should be stored, got %d", len(store.urls))
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want sitemap.FailurePolicy
	}{
		{"skip", sitemap.SkipAndContinue},
		{"", sitemap.SkipAndContinue},
		{"nonsense", sitemap.SkipAndContinue},
		{"abort", sitemap.AbortAll},
		{"AbortAll", sitemap.AbortAll},
		{"abort_all", sitemap.AbortAll},
	}
	for _, tt := range tests {
		if got := ParsePolicy(tt.in); got != tt.want {
			t.Errorf("ParsePolicy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEntryToURL(t *testing.T) {
	sourceID := uuid.New()
	now := time.Now()
	priority := 0.7

	entry := &sitemap.Entry{
		Location:    "https://example.com/page",
		LastMod:     "2024-03-01",
		LastModTime: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		ChangeFreq:  sitemap.FreqWeekly,
		Priority:    &priority,
	}

	url := entryToURL(sourceID, entry, now)
	if url.Location != entry.Location || url.SourceID != sourceID {
		t.Errorf("identity fields wrong: %+v", url)
	}
	if url.ChangeFreq != "weekly" {
		t.Errorf("ChangeFreq = %q, want weekly", url.ChangeFreq)
	}
	if url.LastMod == nil || !url.LastMod.Equal(entry.LastModTime) {
		t.Errorf("LastMod = %v", url.LastMod)
	}
}

package sitemap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeFetcher struct {
	docs    map[string]string
	fails   map[string]error
	fetches []string
}

func (f *fakeFetcher) Fetch(_ context.Context, location string) (io.ReadCloser, error) {
	f.fetches = append(f.fetches, location)
	if err, ok := f.fails[location]; ok {
		return nil, err
	}
	doc, ok := f.docs[location]
	if !ok {
		return nil, fmt.Errorf("no document for %s", location)
	}
	return io.NopCloser(strings.NewReader(doc)), nil
}

func testOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return opts
}

// collectWalk drains the walker, separating entries from error items.
func collectWalk(t *testing.T, w *Walker) ([]*Entry, []*WalkError) {
	t.Helper()
	var entries []*Entry
	var walkErrs []*WalkError
	for {
		entry, err := w.Next(context.Background())
		if errors.Is(err, ErrDone) {
			return entries, walkErrs
		}
		if err != nil {
			var we *WalkError
			if !errors.As(err, &we) {
				t.Fatalf("Next returned unexpected error type: %v", err)
			}
			walkErrs = append(walkErrs, we)
			continue
		}
		entries = append(entries, entry)
	}
}

// walkSequence drains the walker into an ordered item summary, for asserting
// where error markers fall relative to entries.
func walkSequence(t *testing.T, w *Walker) []string {
	t.Helper()
	var seq []string
	for {
		entry, err := w.Next(context.Background())
		if errors.Is(err, ErrDone) {
			return seq
		}
		if err != nil {
			var we *WalkError
			if !errors.As(err, &we) {
				t.Fatalf("Next returned unexpected error type: %v", err)
			}
			seq = append(seq, "err:"+string(we.Code))
			continue
		}
		seq = append(seq, entry.Location)
	}
}

func locations(entries []*Entry) []string {
	locs := make([]string, len(entries))
	for i, e := range entries {
		locs[i] = e.Location
	}
	return locs
}

func TestWalkUrlset(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url>
    <loc>https://example.com/</loc>
    <lastmod>2024-01-15</lastmod>
    <changefreq>daily</changefreq>
    <priority>0.8</priority>
  </url>
  <url>
    <loc>https://example.com/about</loc>
  </url>
  <url>
    <loc>https://example.com/blog</loc>
    <lastmod>2024-06-01T10:30:00Z</lastmod>
    <changefreq>weekly</changefreq>
  </url>
</urlset>`

	f := &fakeFetcher{docs: map[string]string{"root": doc}}
	w := NewWalker("root", f, testOptions(Options{}))
	entries, walkErrs := collectWalk(t, w)

	if len(walkErrs) != 0 {
		t.Fatalf("unexpected errors: %v", walkErrs)
	}

	want := []string{"https://example.com/", "https://example.com/about", "https://example.com/blog"}
	if diff := cmp.Diff(want, locations(entries)); diff != "" {
		t.Errorf("entry order mismatch (-want +got):\n%s", diff)
	}

	first := entries[0]
	if first.LastMod != "2024-01-15" {
		t.Errorf("LastMod = %q, want 2024-01-15", first.LastMod)
	}
	if first.LastModTime.IsZero() {
		t.Error("LastModTime not parsed for valid date")
	}
	if first.ChangeFreq != FreqDaily {
		t.Errorf("ChangeFreq = %v, want daily", first.ChangeFreq)
	}
	if first.Priority == nil || *first.Priority != 0.8 {
		t.Errorf("Priority = %v, want 0.8", first.Priority)
	}

	second := entries[1]
	if second.ChangeFreq != FreqUnset || second.Priority != nil || second.LastMod != "" {
		t.Errorf("optional fields should stay unset: %+v", second)
	}

	if got := w.Stats().Entries; got != 3 {
		t.Errorf("Stats().Entries = %d, want 3", got)
	}
}

func TestWalkMissingLocSkipped(t *testing.T) {
	doc := `<urlset><url><loc>a</loc></url><url><priority>1</priority></url><url><loc>b</loc></url></urlset>`

	f := &fakeFetcher{docs: map[string]string{"root": doc}}
	w := NewWalker("root", f, testOptions(Options{}))
	entries, walkErrs := collectWalk(t, w)

	if len(walkErrs) != 0 {
		t.Fatalf("unexpected errors: %v", walkErrs)
	}
	if diff := cmp.Diff([]string{"a", "b"}, locations(entries)); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if got := w.Stats().SkippedRecords; got != 1 {
		t.Errorf("Stats().SkippedRecords = %d, want 1", got)
	}
}

func TestWalkLenientFields(t *testing.T) {
	doc := `<urlset>
  <url><loc>a</loc><priority>2.5</priority></url>
  <url><loc>b</loc><priority>high</priority></url>
  <url><loc>c</loc><changefreq>HOURLY</changefreq></url>
  <url><loc>d</loc><changefreq>fortnightly</changefreq></url>
  <url><loc>e</loc><lastmod>not-a-date</lastmod></url>
</urlset>`

	f := &fakeFetcher{docs: map[string]string{"root": doc}}
	w := NewWalker("root", f, testOptions(Options{}))
	entries, walkErrs := collectWalk(t, w)

	if len(walkErrs) != 0 {
		t.Fatalf("unexpected errors: %v", walkErrs)
	}
	if len(entries) != 5 {
		t.Fatalf("got %d entries, want 5", len(entries))
	}

	// Out-of-range priority is a protocol violation, not a parse error.
	if entries[0].Priority == nil || *entries[0].Priority != 2.5 {
		t.Errorf("out-of-range priority not preserved: %v", entries[0].Priority)
	}
	// Non-numeric priority keeps the raw text only.
	if entries[1].Priority != nil || entries[1].PriorityRaw != "high" {
		t.Errorf("raw priority not retained: %+v", entries[1])
	}
	// changefreq matching is case-insensitive.
	if entries[2].ChangeFreq != FreqHourly {
		t.Errorf("ChangeFreq = %v, want hourly", entries[2].ChangeFreq)
	}
	// Unrecognized changefreq keeps the raw text under FreqUnknown.
	if entries[3].ChangeFreq != FreqUnknown || entries[3].ChangeFreqRaw != "fortnightly" {
		t.Errorf("unknown changefreq not retained: %+v", entries[3])
	}
	// Bad lastmod keeps the raw text with a zero parsed time.
	if entries[4].LastMod != "not-a-date" || !entries[4].LastModTime.IsZero() {
		t.Errorf("raw lastmod not retained: %+v", entries[4])
	}
}

func TestWalkUnknownElementsSkipped(t *testing.T) {
	doc := `<urlset xmlns:image="http://www.google.com/schemas/sitemap-image/1.1">
  <url>
    <loc>a</loc>
    <image:image>
      <image:loc>https://example.com/photo.jpg</image:loc>
      <image:caption>nested <b>markup</b> here</image:caption>
    </image:image>
    <priority>0.5</priority>
  </url>
  <stray>ignored</stray>
  <url><loc>b</loc></url>
</urlset>`

	f := &fakeFetcher{docs: map[string]string{"root": doc}}
	w := NewWalker("root", f, testOptions(Options{}))
	entries, walkErrs := collectWalk(t, w)

	if len(walkErrs) != 0 {
		t.Fatalf("unexpected errors: %v", walkErrs)
	}
	if diff := cmp.Diff([]string{"a", "b"}, locations(entries)); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	// The extension element must not eat the priority that follows it. Note
	// that image:loc does not leak into the entry's loc either.
	if entries[0].Priority == nil || *entries[0].Priority != 0.5 {
		t.Errorf("field after skipped subtree lost: %+v", entries[0])
	}
	if entries[0].Location != "a" {
		t.Errorf("Location = %q, want a", entries[0].Location)
	}
}

func TestWalkTextSplitAcrossTokens(t *testing.T) {
	// CDATA forces the decoder to hand the text back in pieces.
	doc := `<urlset><url><loc>https://example.com/<![CDATA[a&b]]>/end</loc></url></urlset>`

	f := &fakeFetcher{docs: map[string]string{"root": doc}}
	w := NewWalker("root", f, testOptions(Options{}))
	entries, walkErrs := collectWalk(t, w)

	if len(walkErrs) != 0 {
		t.Fatalf("unexpected errors: %v", walkErrs)
	}
	if len(entries) != 1 || entries[0].Location != "https://example.com/a&b/end" {
		t.Errorf("split text not stitched: %+v", entries)
	}
}

func TestWalkUnrecognizedRoot(t *testing.T) {
	for name, doc := range map[string]string{
		"rss":   `<rss version="2.0"><channel></channel></rss>`,
		"empty": `   `,
	} {
		t.Run(name, func(t *testing.T) {
			f := &fakeFetcher{docs: map[string]string{"root": doc}}
			w := NewWalker("root", f, testOptions(Options{}))
			entries, walkErrs := collectWalk(t, w)

			if len(entries) != 0 {
				t.Errorf("got %d entries, want 0", len(entries))
			}
			if len(walkErrs) != 1 || walkErrs[0].Code != CodeUnrecognizedDocument {
				t.Errorf("got errors %v, want one UNRECOGNIZED_DOCUMENT", walkErrs)
			}
		})
	}
}

func urlsetOf(locs ...string) string {
	var b strings.Builder
	b.WriteString("<urlset>")
	for _, loc := range locs {
		fmt.Fprintf(&b, "<url><loc>%s</loc></url>", loc)
	}
	b.WriteString("</urlset>")
	return b.String()
}

func indexOf(locs ...string) string {
	var b strings.Builder
	b.WriteString("<sitemapindex>")
	for _, loc := range locs {
		fmt.Fprintf(&b, "<sitemap><loc>%s</loc></sitemap>", loc)
	}
	b.WriteString("</sitemapindex>")
	return b.String()
}

func TestWalkIndexFlattening(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{
		"root":   indexOf("left", "mid", "right"),
		"left":   indexOf("left-a", "left-b"),
		"left-a": urlsetOf("1", "2"),
		"left-b": urlsetOf("3"),
		"mid":    urlsetOf("4", "5"),
		"right":  urlsetOf("6"),
	}}
	w := NewWalker("root", f, testOptions(Options{}))
	entries, walkErrs := collectWalk(t, w)

	if len(walkErrs) != 0 {
		t.Fatalf("unexpected errors: %v", walkErrs)
	}

	// Depth-first, left-to-right: each index entry's subtree is exhausted
	// before its next sibling starts.
	want := []string{"1", "2", "3", "4", "5", "6"}
	if diff := cmp.Diff(want, locations(entries)); diff != "" {
		t.Errorf("flattening order mismatch (-want +got):\n%s", diff)
	}
	if got := w.Stats().DocumentsFetched; got != 6 {
		t.Errorf("Stats().DocumentsFetched = %d, want 6", got)
	}
}

func TestWalkIdempotent(t *testing.T) {
	docs := map[string]string{
		"root": indexOf("a", "b"),
		"a":    urlsetOf("1", "2"),
		"b":    urlsetOf("3"),
	}

	run := func() []*Entry {
		w := NewWalker("root", &fakeFetcher{docs: docs}, testOptions(Options{}))
		entries, _ := collectWalk(t, w)
		return entries
	}

	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Errorf("two walks over identical sources differ:\n%s", diff)
	}
}

func TestWalkMaxDepth(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{
		"root":  indexOf("inner"),
		"inner": indexOf("leaf"),
		"leaf":  urlsetOf("1", "2"),
	}}
	w := NewWalker("root", f, testOptions(Options{MaxDepth: 1}))
	entries, walkErrs := collectWalk(t, w)

	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
	if len(walkErrs) != 1 || walkErrs[0].Code != CodeLimitExceeded {
		t.Fatalf("got errors %v, want one TRAVERSAL_LIMIT_EXCEEDED", walkErrs)
	}
	if !walkErrs[0].Fatal() {
		t.Error("limit error should be fatal")
	}
}

func TestWalkMaxDocuments(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{
		"root": indexOf("a", "b", "c"),
		"a":    urlsetOf("1"),
		"b":    urlsetOf("2"),
		"c":    urlsetOf("3"),
	}}
	w := NewWalker("root", f, testOptions(Options{MaxDocuments: 3}))
	entries, walkErrs := collectWalk(t, w)

	// root, a, b fetched; fetching c trips the cap. Entries already produced
	// stay valid.
	if diff := cmp.Diff([]string{"1", "2"}, locations(entries)); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if len(walkErrs) != 1 || walkErrs[0].Code != CodeLimitExceeded {
		t.Errorf("got errors %v, want one TRAVERSAL_LIMIT_EXCEEDED", walkErrs)
	}
}

func TestWalkFetchFailureSkipAndContinue(t *testing.T) {
	f := &fakeFetcher{
		docs: map[string]string{
			"root": indexOf("broken", "ok"),
			"ok":   urlsetOf("1", "2"),
		},
		fails: map[string]error{"broken": errors.New("connection refused")},
	}
	w := NewWalker("root", f, testOptions(Options{}))
	seq := walkSequence(t, w)

	// The error marker lands where the failed subtree would have expanded.
	want := []string{"err:FETCH_FAILED", "1", "2"}
	if diff := cmp.Diff(want, seq); diff != "" {
		t.Errorf("sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkFetchFailureAbortAll(t *testing.T) {
	f := &fakeFetcher{
		docs: map[string]string{
			"root": indexOf("broken", "ok"),
			"ok":   urlsetOf("1", "2"),
		},
		fails: map[string]error{"broken": errors.New("connection refused")},
	}
	w := NewWalker("root", f, testOptions(Options{Policy: AbortAll}))
	entries, walkErrs := collectWalk(t, w)

	if len(entries) != 0 {
		t.Errorf("got %d entries after abort, want 0", len(entries))
	}
	if len(walkErrs) != 1 || walkErrs[0].Code != CodeFetchFailed {
		t.Errorf("got errors %v, want one FETCH_FAILED", walkErrs)
	}
	// The sibling subtree must not have been fetched.
	for _, loc := range f.fetches {
		if loc == "ok" {
			t.Error("sibling fetched after abort")
		}
	}
}

func TestWalkMalformedSubtreeIsolated(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{
		"root":   indexOf("broken", "ok"),
		"broken": `<urlset><url><loc>lost</loc></url><url><loc>trunc`,
		"ok":     urlsetOf("1"),
	}}
	w := NewWalker("root", f, testOptions(Options{}))
	seq := walkSequence(t, w)

	// Entries before the breakage still count; the sibling is unaffected.
	want := []string{"lost", "err:MALFORMED_XML", "1"}
	if diff := cmp.Diff(want, seq); diff != "" {
		t.Errorf("sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkMalformedIndexPrunesSubtree(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{
		"root":   indexOf("badidx", "ok"),
		"badidx": `<sitemapindex><sitemap><loc>never</loc></sitemap><sitemap>`,
		"ok":     urlsetOf("1"),
	}}
	w := NewWalker("root", f, testOptions(Options{}))
	seq := walkSequence(t, w)

	want := []string{"err:MALFORMED_XML", "1"}
	if diff := cmp.Diff(want, seq); diff != "" {
		t.Errorf("sequence mismatch (-want +got):\n%s", diff)
	}
	for _, loc := range f.fetches {
		if loc == "never" {
			t.Error("child of malformed index was fetched")
		}
	}
}

func TestWalkContextCancellation(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{"root": urlsetOf("1", "2")}}
	w := NewWalker("root", f, testOptions(Options{}))

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := w.Next(ctx); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	cancel()
	if _, err := w.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next after cancel = %v, want context.Canceled", err)
	}
}

func TestWalkAll(t *testing.T) {
	f := &fakeFetcher{
		docs: map[string]string{
			"root": indexOf("broken", "ok"),
			"ok":   urlsetOf("1", "2"),
		},
		fails: map[string]error{"broken": errors.New("boom")},
	}
	w := NewWalker("root", f, testOptions(Options{}))

	var got []string
	for entry, err := range w.All(context.Background()) {
		if err != nil {
			var we *WalkError
			if !errors.As(err, &we) {
				t.Fatalf("unexpected error type: %v", err)
			}
			got = append(got, "err:"+string(we.Code))
			continue
		}
		got = append(got, entry.Location)
	}

	want := []string{"err:FETCH_FAILED", "1", "2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("All sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkIndexEntriesNeverSurface(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{
		"root": indexOf("child"),
		// The child index's lastmod should vanish along with the pointer.
		"child": `<sitemapindex><sitemap><loc>leaf</loc><lastmod>2024-01-01</lastmod></sitemap></sitemapindex>`,
		"leaf":  urlsetOf("1"),
	}}
	w := NewWalker("root", f, testOptions(Options{}))
	entries, walkErrs := collectWalk(t, w)

	if len(walkErrs) != 0 {
		t.Fatalf("unexpected errors: %v", walkErrs)
	}
	if diff := cmp.Diff([]string{"1"}, locations(entries)); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

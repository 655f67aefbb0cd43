package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
)

const sampleDoc = `<urlset><url><loc>https://example.com/</loc></url></urlset>`

func gzipped(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(data)); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestHTTPFetcherPlain(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		w.Write([]byte(sampleDoc))
	}))
	defer srv.Close()

	f := NewHTTPFetcher("test-agent", 5*time.Second)
	rc, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if got := readAll(t, rc); got != sampleDoc {
		t.Errorf("body = %q, want %q", got, sampleDoc)
	}
	if gotUA != "test-agent" {
		t.Errorf("User-Agent = %q, want test-agent", gotUA)
	}
}

func TestHTTPFetcherGzipPayload(t *testing.T) {
	payload := gzipped(t, sampleDoc)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A .xml.gz file served as-is, no Content-Encoding header.
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(payload)
	}))
	defer srv.Close()

	f := NewHTTPFetcher("test-agent", 5*time.Second)
	rc, err := f.Fetch(context.Background(), srv.URL+"/sitemap.xml.gz")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if got := readAll(t, rc); got != sampleDoc {
		t.Errorf("decompressed body = %q, want %q", got, sampleDoc)
	}
}

func TestHTTPFetcherStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewHTTPFetcher("test-agent", 5*time.Second)
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Error("expected error for 404 response")
	}
}

func TestFileFetcher(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "sitemap.xml")
	if err := os.WriteFile(plain, []byte(sampleDoc), 0644); err != nil {
		t.Fatal(err)
	}
	compressed := filepath.Join(dir, "sitemap.xml.gz")
	if err := os.WriteFile(compressed, gzipped(t, sampleDoc), 0644); err != nil {
		t.Fatal(err)
	}
	short := filepath.Join(dir, "short.xml")
	if err := os.WriteFile(short, []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}

	f := FileFetcher{}

	rc, err := f.Fetch(context.Background(), plain)
	if err != nil {
		t.Fatalf("Fetch plain: %v", err)
	}
	if got := readAll(t, rc); got != sampleDoc {
		t.Errorf("plain body = %q", got)
	}

	rc, err = f.Fetch(context.Background(), "file://"+compressed)
	if err != nil {
		t.Fatalf("Fetch gz: %v", err)
	}
	if got := readAll(t, rc); got != sampleDoc {
		t.Errorf("decompressed body = %q", got)
	}

	// Files shorter than the gzip magic must still come through.
	rc, err = f.Fetch(context.Background(), short)
	if err != nil {
		t.Fatalf("Fetch short: %v", err)
	}
	if got := readAll(t, rc); got != "a" {
		t.Errorf("short body = %q", got)
	}

	if _, err := f.Fetch(context.Background(), filepath.Join(dir, "missing.xml")); err == nil {
		t.Error("expected error for missing file")
	}
}

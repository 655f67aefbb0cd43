// Package fetcher supplies sitemap document bytes to the walker. Transport,
// timeouts, and gzip decompression all live here; the walker itself never
// touches the network.
package fetcher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/romangod6/sitemap-harvester/internal/sitemap"
)

const defaultTimeout = 30 * time.Second

// HTTPFetcher retrieves sitemap documents over HTTP(S). Sites commonly
// publish sitemaps as .xml.gz files; those are decompressed transparently.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

var _ sitemap.Fetcher = (*HTTPFetcher)(nil)

func NewHTTPFetcher(userAgent string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", location, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", location, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %s: unexpected status %s", location, resp.Status)
	}

	return maybeGunzip(resp.Body)
}

// FileFetcher reads sitemap documents from the local filesystem, mainly for
// the CLI and tests. file:// prefixes are accepted.
type FileFetcher struct{}

var _ sitemap.Fetcher = FileFetcher{}

func (FileFetcher) Fetch(_ context.Context, location string) (io.ReadCloser, error) {
	path := strings.TrimPrefix(location, "file://")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return maybeGunzip(f)
}

// maybeGunzip sniffs the gzip magic bytes and wraps the stream in a
// decompressor when present. Extensions and Content-Encoding headers are
// ignored; only the payload itself decides.
func maybeGunzip(rc io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(rc)
	magic, err := br.Peek(2)
	if err != nil || len(magic) < 2 || magic[0] != 0x1f || magic[1] != 0x8b {
		// Not gzip (or too short to tell): hand back the buffered stream.
		return &bufferedReadCloser{r: br, c: rc}, nil
	}

	gz, err := gzip.NewReader(br)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	return &gzipReadCloser{gz: gz, body: rc}, nil
}

type bufferedReadCloser struct {
	r *bufio.Reader
	c io.Closer
}

func (b *bufferedReadCloser) Read(p []byte) (int, error) { return b.r.Read(p) }
func (b *bufferedReadCloser) Close() error               { return b.c.Close() }

type gzipReadCloser struct {
	gz   *gzip.Reader
	body io.Closer
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipReadCloser) Close() error {
	gzErr := g.gz.Close()
	if err := g.body.Close(); err != nil {
		return err
	}
	return gzErr
}

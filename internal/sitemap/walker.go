// Package sitemap extracts page entries from sitemaps.org XML documents.
//
// The walker streams entries one at a time: a urlset yields its <url> records
// directly, a sitemapindex is flattened transparently by fetching each nested
// sitemap through a caller-supplied Fetcher, depth-first in document order.
// Only one document is parsed at a time, so memory stays proportional to
// nesting depth rather than tree size.
package sitemap

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
)

// Fetcher is the raw byte source for sitemap documents. Implementations own
// transport, timeouts, and decompression; the walker only needs bytes or an
// error for a location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (io.ReadCloser, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, location string) (io.ReadCloser, error)

func (f FetcherFunc) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	return f(ctx, location)
}

// FailurePolicy decides what a fetch or parse failure on one nested sitemap
// does to the rest of the walk.
type FailurePolicy int

const (
	// SkipAndContinue reports the failed subtree as an error item and moves
	// on to the next pending location.
	SkipAndContinue FailurePolicy = iota
	// AbortAll ends the walk at the first failure.
	AbortAll
)

const (
	defaultMaxDepth     = 10
	defaultMaxDocuments = 1000
)

// Options tunes a walk. The zero value is usable.
type Options struct {
	// Policy selects the failure isolation behavior, SkipAndContinue by
	// default.
	Policy FailurePolicy
	// MaxDepth caps index nesting: the root document sits at depth 0.
	// Exceeding the cap is fatal to the remainder of the walk.
	MaxDepth int
	// MaxDocuments caps how many documents are fetched in total.
	MaxDocuments int
	// Logger receives lenient-parse warnings. Defaults to slog.Default.
	Logger *slog.Logger
}

// Stats are walk diagnostics, readable at any point during the walk.
type Stats struct {
	DocumentsFetched int
	Entries          int
	SkippedRecords   int
	Errors           int
}

type pendingDoc struct {
	location string
	depth    int
}

// Walker produces the flattened entry sequence for one sitemap tree. It is
// pull-based and single-threaded; nothing happens outside Next. A Walker is
// not safe for concurrent use, but independent Walkers share nothing.
type Walker struct {
	fetcher  Fetcher
	policy   FailurePolicy
	maxDepth int
	maxDocs  int
	logger   *slog.Logger

	// pending is the depth-first stack of locations still to visit.
	pending    []pendingDoc
	active     *docParser
	activeBody io.Closer
	stats      Stats
	done       bool
}

// NewWalker prepares a walk rooted at location. No fetch happens until the
// first Next call.
func NewWalker(location string, fetcher Fetcher, opts Options) *Walker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{
		fetcher:  fetcher,
		policy:   opts.Policy,
		maxDepth: cmp.Or(opts.MaxDepth, defaultMaxDepth),
		maxDocs:  cmp.Or(opts.MaxDocuments, defaultMaxDocuments),
		logger:   logger,
		pending:  []pendingDoc{{location: location, depth: 0}},
	}
}

// Next returns the next page entry in depth-first document order.
//
// A *WalkError return is an error item of the sequence: under SkipAndContinue
// it prunes one subtree and further Next calls carry on with its siblings,
// so callers should keep pulling. Fatal errors (limit violations, any error
// under AbortAll) end the walk. ErrDone signals normal exhaustion.
func (w *Walker) Next(ctx context.Context) (*Entry, error) {
	for {
		if w.done {
			return nil, ErrDone
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if w.active != nil {
			entry, _, err := w.active.next()
			if err == nil {
				w.stats.Entries++
				return entry, nil
			}
			location := w.active.location
			w.closeActive()
			if errors.Is(err, errDocEnd) {
				continue
			}
			return w.fail(walkErr(CodeMalformedXML, location, err))
		}

		if len(w.pending) == 0 {
			w.done = true
			return nil, ErrDone
		}
		next := w.pending[len(w.pending)-1]
		w.pending = w.pending[:len(w.pending)-1]

		if next.depth > w.maxDepth {
			w.done = true
			w.stats.Errors++
			return nil, walkErr(CodeLimitExceeded, next.location,
				fmt.Errorf("index nesting depth %d exceeds limit %d", next.depth, w.maxDepth))
		}
		if w.stats.DocumentsFetched >= w.maxDocs {
			w.done = true
			w.stats.Errors++
			return nil, walkErr(CodeLimitExceeded, next.location,
				fmt.Errorf("document count exceeds limit %d", w.maxDocs))
		}

		if we := w.visit(ctx, next); we != nil {
			return w.fail(we)
		}
	}
}

// visit fetches and classifies one pending location. A urlset becomes the
// active sub-parse; a sitemapindex has its child locations pushed onto the
// stack in document order, first child on top.
func (w *Walker) visit(ctx context.Context, doc pendingDoc) *WalkError {
	body, err := w.fetcher.Fetch(ctx, doc.location)
	if err != nil {
		return walkErr(CodeFetchFailed, doc.location, err)
	}
	w.stats.DocumentsFetched++

	parser, err := newDocParser(body, doc.location, w.logger)
	if err != nil {
		body.Close()
		if errors.Is(err, errUnrecognizedRoot) {
			return walkErr(CodeUnrecognizedDocument, doc.location, err)
		}
		return walkErr(CodeMalformedXML, doc.location, err)
	}

	if parser.kind == KindPageList {
		w.active = parser
		w.activeBody = body
		return nil
	}

	// Index documents are consumed whole before descending; their entries
	// never surface to the consumer.
	var locations []string
	for {
		_, index, err := parser.next()
		if errors.Is(err, errDocEnd) {
			break
		}
		if err != nil {
			body.Close()
			w.stats.SkippedRecords += parser.skipped
			return walkErr(CodeMalformedXML, doc.location, err)
		}
		locations = append(locations, index.Location)
	}
	body.Close()
	w.stats.SkippedRecords += parser.skipped

	// Reverse push so the first child is popped next: depth-first,
	// left-to-right.
	for i := len(locations) - 1; i >= 0; i-- {
		w.pending = append(w.pending, pendingDoc{location: locations[i], depth: doc.depth + 1})
	}
	return nil
}

func (w *Walker) closeActive() {
	w.stats.SkippedRecords += w.active.skipped
	if w.activeBody != nil {
		w.activeBody.Close()
		w.activeBody = nil
	}
	w.active = nil
}

func (w *Walker) fail(we *WalkError) (*Entry, error) {
	w.stats.Errors++
	if we.Fatal() || w.policy == AbortAll {
		w.done = true
	}
	return nil, we
}

// Stats returns diagnostics for the walk so far.
func (w *Walker) Stats() Stats { return w.stats }

// All adapts the walker to a range-over-func sequence. Error items appear as
// (nil, err) pairs; the sequence ends at exhaustion, at a fatal error, or
// when the context is canceled.
func (w *Walker) All(ctx context.Context) iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		for {
			entry, err := w.Next(ctx)
			if errors.Is(err, ErrDone) {
				return
			}
			if !yield(entry, err) {
				return
			}
			if err != nil {
				var we *WalkError
				if !errors.As(err, &we) {
					// Context cancellation, not part of the walk.
					return
				}
			}
		}
	}
}

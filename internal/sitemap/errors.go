package sitemap

import (
	"errors"
	"fmt"
)

// ErrorCode classifies walk failures.
type ErrorCode string

const (
	// CodeMalformedXML indicates a structural XML violation in one document.
	// It is confined to that document's subtree.
	CodeMalformedXML ErrorCode = "MALFORMED_XML"
	// CodeUnrecognizedDocument indicates a root element that is neither
	// <urlset> nor <sitemapindex>.
	CodeUnrecognizedDocument ErrorCode = "UNRECOGNIZED_DOCUMENT"
	// CodeIncompleteRecord indicates a record that closed without a <loc>.
	// Such records are dropped and only show up in walk diagnostics.
	CodeIncompleteRecord ErrorCode = "INCOMPLETE_RECORD"
	// CodeFetchFailed indicates the byte source could not supply a document.
	CodeFetchFailed ErrorCode = "FETCH_FAILED"
	// CodeLimitExceeded indicates the depth or document cap was reached.
	// It is fatal to the remainder of the walk, never to prior output.
	CodeLimitExceeded ErrorCode = "TRAVERSAL_LIMIT_EXCEEDED"
)

// ErrDone is returned by Walker.Next once the walk is exhausted.
var ErrDone = errors.New("sitemap: walk done")

// WalkError describes a failure at one location of the sitemap tree.
type WalkError struct {
	Code     ErrorCode
	Location string
	Err      error
}

func (e *WalkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Location, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Location)
}

func (e *WalkError) Unwrap() error { return e.Err }

// Fatal reports whether the error ends the walk rather than pruning one
// subtree.
func (e *WalkError) Fatal() bool { return e.Code == CodeLimitExceeded }

func walkErr(code ErrorCode, location string, err error) *WalkError {
	return &WalkError{Code: code, Location: location, Err: err}
}

package services

import (
	"errors"
	"fmt"
)

// Errors surfaced by the catalog and download pipeline. Every external call
// is attempted exactly once; there is no retry layer behind any of these.
var (
	// ErrMissingURL is returned when a download is requested without a URL.
	ErrMissingURL = errors.New("URL is required")

	// ErrUpstreamAuth means the metadata provider rejected our credentials.
	ErrUpstreamAuth = errors.New("upstream rejected API credentials")

	// ErrUpstreamRateLimited means the metadata provider throttled us.
	ErrUpstreamRateLimited = errors.New("upstream rate limit exceeded")

	// ErrUpstreamNotFound means the requested title does not exist upstream.
	ErrUpstreamNotFound = errors.New("title not found upstream")
)

// Extraction failure kinds.
const (
	ExtractionUnsupported = "unsupported_source"
	ExtractionNoFormat    = "no_format"
	ExtractionTransfer    = "transfer_failed"
)

// ExtractionError describes a failed attempt to resolve or transfer media
// from a source URL.
type ExtractionError struct {
	Kind string
	URL  string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed (%s) for %s: %v", e.Kind, e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

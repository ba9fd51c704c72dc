package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"github.com/oliversimiyu/movie-downloader/config"
)

// MediaFetcher resolves an arbitrary media URL into the base name of a
// downloaded artifact. Consumers depend on this rather than the concrete
// backend so the extraction step can be faked out.
type MediaFetcher interface {
	Fetch(ctx context.Context, sourceURL string) (string, error)
}

// Fetcher resolves an arbitrary media URL into a downloaded artifact via
// the yt-dlp extraction backend. The backend selects the best available
// combined audio/video format and derives the target filename from the
// resolved title metadata, not the caller-supplied URL.
//
// Fetch builds a fresh backend command per call, so concurrent fetches for
// different URLs do not interfere. Two fetches resolving to the same title
// overwrite each other's artifact; there is no reservation scheme.
type Fetcher struct {
	downloadDir string
}

var _ MediaFetcher = (*Fetcher)(nil)

func NewFetcher(cfg *config.Config) *Fetcher {
	return &Fetcher{downloadDir: cfg.DownloadDir}
}

// EnsureBackend makes sure the download directory exists and the yt-dlp
// binary is available, downloading it if necessary.
func (f *Fetcher) EnsureBackend(ctx context.Context) error {
	if err := os.MkdirAll(f.downloadDir, 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("failed to install extraction backend: %w", err)
	}
	return nil
}

// Fetch resolves and transfers the media at sourceURL, returning the base
// name of the final artifact on local storage. The call blocks for the
// full duration of resolution and transfer.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL string) (string, error) {
	if sourceURL == "" {
		return "", ErrMissingURL
	}

	dl := ytdlp.New().
		Format("b").
		Output(filepath.Join(f.downloadDir, "%(title)s.%(ext)s")).
		RestrictFilenames().
		NoPlaylist()

	result, err := dl.Run(ctx, sourceURL)
	if err != nil {
		var detail string
		if result != nil {
			detail = result.Stderr
		}
		return "", classifyExtractionError(sourceURL, err, detail)
	}

	info, err := result.GetExtractedInfo()
	if err != nil || len(info) == 0 || info[0].Filename == nil {
		return "", &ExtractionError{
			Kind: ExtractionNoFormat,
			URL:  sourceURL,
			Err:  fmt.Errorf("backend returned no resolved file: %v", err),
		}
	}

	return filepath.Base(*info[0].Filename), nil
}

// classifyExtractionError maps backend output onto the extraction failure
// kinds. Anything unrecognized counts as a transfer failure.
func classifyExtractionError(sourceURL string, err error, stderr string) *ExtractionError {
	combined := err.Error() + "\n" + stderr
	kind := ExtractionTransfer
	switch {
	case strings.Contains(combined, "Unsupported URL"),
		strings.Contains(combined, "is not a valid URL"):
		kind = ExtractionUnsupported
	case strings.Contains(combined, "Requested format is not available"),
		strings.Contains(combined, "No video formats found"):
		kind = ExtractionNoFormat
	}
	return &ExtractionError{Kind: kind, URL: sourceURL, Err: err}
}

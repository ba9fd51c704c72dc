package services

import (
	"context"
	"errors"
	"testing"

	"github.com/oliversimiyu/movie-downloader/config"
)

func TestFetchMissingURL(t *testing.T) {
	f := NewFetcher(&config.Config{DownloadDir: t.TempDir()})
	_, err := f.Fetch(context.Background(), "")
	if !errors.Is(err, ErrMissingURL) {
		t.Errorf("expected ErrMissingURL, got %v", err)
	}
}

func TestClassifyExtractionError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		stderr string
		kind   string
	}{
		{
			name: "Unsupported URL",
			err:  errors.New("ERROR: Unsupported URL: https://example.com/page"),
			kind: ExtractionUnsupported,
		},
		{
			name:   "Unsupported URL In Stderr",
			err:    errors.New("exit status 1"),
			stderr: "ERROR: Unsupported URL: https://example.com/page",
			kind:   ExtractionUnsupported,
		},
		{
			name: "Invalid URL",
			err:  errors.New("ERROR: 'notaurl' is not a valid URL"),
			kind: ExtractionUnsupported,
		},
		{
			name: "No Format Available",
			err:  errors.New("ERROR: Requested format is not available"),
			kind: ExtractionNoFormat,
		},
		{
			name:   "No Video Formats",
			err:    errors.New("exit status 1"),
			stderr: "ERROR: No video formats found!",
			kind:   ExtractionNoFormat,
		},
		{
			name: "Transfer Failure",
			err:  errors.New("ERROR: unable to download video data: HTTP Error 503"),
			kind: ExtractionTransfer,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := classifyExtractionError("https://example.com/page", test.err, test.stderr)
			if got.Kind != test.kind {
				t.Errorf("classifyExtractionError kind = %s, expected %s", got.Kind, test.kind)
			}
			if !errors.Is(got, test.err) {
				t.Error("classified error must wrap the backend error")
			}
		})
	}
}

func TestExtractionErrorMessage(t *testing.T) {
	err := &ExtractionError{Kind: ExtractionUnsupported, URL: "https://example.com", Err: errors.New("boom")}
	want := "extraction failed (unsupported_source) for https://example.com: boom"
	if err.Error() != want {
		t.Errorf("Error() = %q, expected %q", err.Error(), want)
	}
}

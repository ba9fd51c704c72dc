package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultClient is a shared HTTP client with sensible defaults
var DefaultClient = &http.Client{
	Timeout: 15 * time.Second,
}

// Get performs an HTTP GET request with context and returns the response.
// Non-200 statuses are returned to the caller unread so it can decide how
// to classify them.
func Get(ctx context.Context, apiURL string, client *http.Client) (*http.Response, error) {
	if client == nil {
		client = DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch results: %w", err)
	}

	return resp, nil
}

// BuildQueryURL builds a URL with query parameters
func BuildQueryURL(baseURL string, params map[string]string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL // Return original if parsing fails
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// DecodeJSONResponse decodes a JSON response from an HTTP response body
func DecodeJSONResponse(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// DrainAndClose discards any unread body so the connection can be reused
func DrainAndClose(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/oliversimiyu/movie-downloader/config"
	"github.com/oliversimiyu/movie-downloader/httpclient"
	"github.com/oliversimiyu/movie-downloader/models"
)

// Image URL prefixes. Upstream returns bare path segments; we rewrite them
// to absolute URLs with a fixed size per image kind.
const (
	posterImagePrefix   = "https://image.tmdb.org/t/p/w500"
	backdropImagePrefix = "https://image.tmdb.org/t/p/original"
)

// CatalogClient queries the external metadata provider for search results,
// popularity listings and per-title details, and normalizes raw responses
// into a stable internal shape.
type CatalogClient struct {
	baseURL string
	apiKey  string
	region  string
	client  *http.Client
}

func NewCatalogClient(cfg *config.Config, client *http.Client) *CatalogClient {
	if client == nil {
		client = httpclient.DefaultClient
	}
	return &CatalogClient{
		baseURL: cfg.TMDBBaseURL,
		apiKey:  cfg.TMDBAPIKey,
		region:  cfg.WatchRegion,
		client:  client,
	}
}

// Raw upstream shapes. Optional fields are mapped defensively in
// normalizeTitle rather than trusted downstream.
type tmdbTitle struct {
	ID           int            `json:"id"`
	Title        string         `json:"title"`
	Overview     string         `json:"overview"`
	PosterPath   string         `json:"poster_path"`
	BackdropPath string         `json:"backdrop_path"`
	ReleaseDate  string         `json:"release_date"`
	VoteAverage  float64        `json:"vote_average"`
	VoteCount    int            `json:"vote_count"`
	GenreIDs     []int          `json:"genre_ids"`
	Genres       []models.Genre `json:"genres"`
}

type tmdbPage struct {
	Page         int         `json:"page"`
	Results      []tmdbTitle `json:"results"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
}

type tmdbVideo struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	Site string `json:"site"`
	Type string `json:"type"`
}

type tmdbVideoList struct {
	Results []tmdbVideo `json:"results"`
}

type tmdbProvider struct {
	ProviderName string `json:"provider_name"`
}

type tmdbRegionOfferings struct {
	Flatrate []tmdbProvider `json:"flatrate"`
	Rent     []tmdbProvider `json:"rent"`
	Buy      []tmdbProvider `json:"buy"`
}

type tmdbWatchProviders struct {
	Results map[string]tmdbRegionOfferings `json:"results"`
}

type tmdbDetails struct {
	tmdbTitle
	Videos         tmdbVideoList      `json:"videos"`
	WatchProviders tmdbWatchProviders `json:"watch/providers"`
}

// Search returns one page of normalized results for the query. An empty
// query falls back to the popularity-ranked listing rather than failing.
// Upstream credential rejection and rate limiting degrade to an empty
// well-formed page (logged, recorded on the Outcome); network-level
// failures are returned as errors.
func (c *CatalogClient) Search(ctx context.Context, query string, page int) (models.SearchPage, error) {
	if page < 1 {
		page = 1
	}
	if query == "" {
		return c.Popular(ctx, page)
	}

	searchURL := httpclient.BuildQueryURL(c.baseURL+"/search/movie", map[string]string{
		"api_key": c.apiKey,
		"query":   query,
		"page":    strconv.Itoa(page),
	})
	return c.fetchPage(ctx, searchURL)
}

// Popular returns one page of the popularity-ranked listing.
func (c *CatalogClient) Popular(ctx context.Context, page int) (models.SearchPage, error) {
	if page < 1 {
		page = 1
	}
	popularURL := httpclient.BuildQueryURL(c.baseURL+"/movie/popular", map[string]string{
		"api_key": c.apiKey,
		"page":    strconv.Itoa(page),
	})
	return c.fetchPage(ctx, popularURL)
}

func (c *CatalogClient) fetchPage(ctx context.Context, pageURL string) (models.SearchPage, error) {
	resp, err := httpclient.Get(ctx, pageURL, c.client)
	if err != nil {
		return models.SearchPage{}, fmt.Errorf("catalog request failed: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusUnauthorized:
		httpclient.DrainAndClose(resp)
		slog.Warn("Catalog search degraded to empty results", "reason", ErrUpstreamAuth)
		return models.EmptySearchPage(models.SearchDegradedAuth), nil
	case http.StatusTooManyRequests:
		httpclient.DrainAndClose(resp)
		slog.Warn("Catalog search degraded to empty results", "reason", ErrUpstreamRateLimited)
		return models.EmptySearchPage(models.SearchDegradedRateLimit), nil
	default:
		httpclient.DrainAndClose(resp)
		return models.SearchPage{}, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var raw tmdbPage
	if err := httpclient.DecodeJSONResponse(resp, &raw); err != nil {
		return models.SearchPage{}, fmt.Errorf("catalog response malformed: %w", err)
	}

	results := make([]models.Title, 0, len(raw.Results))
	for _, r := range raw.Results {
		results = append(results, normalizeTitle(r))
	}

	// Pagination counters are passed through from upstream verbatim.
	return models.SearchPage{
		Results:      results,
		Page:         raw.Page,
		TotalPages:   raw.TotalPages,
		TotalResults: raw.TotalResults,
		Outcome:      models.SearchOK,
	}, nil
}

// Details fetches one title with its nested video and provider
// sub-resources appended, and aggregates them into a MovieDetails.
func (c *CatalogClient) Details(ctx context.Context, movieID int) (models.MovieDetails, error) {
	detailsURL := httpclient.BuildQueryURL(fmt.Sprintf("%s/movie/%d", c.baseURL, movieID), map[string]string{
		"api_key":            c.apiKey,
		"append_to_response": "videos,watch/providers",
	})

	resp, err := httpclient.Get(ctx, detailsURL, c.client)
	if err != nil {
		return models.MovieDetails{}, fmt.Errorf("catalog request failed: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		httpclient.DrainAndClose(resp)
		return models.MovieDetails{}, ErrUpstreamNotFound
	case http.StatusUnauthorized:
		httpclient.DrainAndClose(resp)
		return models.MovieDetails{}, ErrUpstreamAuth
	case http.StatusTooManyRequests:
		httpclient.DrainAndClose(resp)
		return models.MovieDetails{}, ErrUpstreamRateLimited
	default:
		httpclient.DrainAndClose(resp)
		return models.MovieDetails{}, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var raw tmdbDetails
	if err := httpclient.DecodeJSONResponse(resp, &raw); err != nil {
		return models.MovieDetails{}, fmt.Errorf("catalog response malformed: %w", err)
	}

	return models.MovieDetails{
		Title:     normalizeTitle(raw.tmdbTitle),
		Videos:    ExtractTrailers(raw.Videos.Results),
		Providers: ExtractProviders(raw.WatchProviders.Results, c.region),
	}, nil
}

// normalizeTitle maps a raw upstream title onto the internal shape:
// image paths become absolute URLs or nil, never a malformed partial URL,
// and a missing release date becomes the explicit sentinel.
func normalizeTitle(raw tmdbTitle) models.Title {
	t := models.Title{
		ID:          raw.ID,
		Title:       raw.Title,
		Overview:    raw.Overview,
		ReleaseDate: raw.ReleaseDate,
		VoteAverage: raw.VoteAverage,
		VoteCount:   raw.VoteCount,
		GenreIDs:    raw.GenreIDs,
		Genres:      raw.Genres,
	}
	if raw.PosterPath != "" {
		poster := posterImagePrefix + raw.PosterPath
		t.PosterPath = &poster
	}
	if raw.BackdropPath != "" {
		backdrop := backdropImagePrefix + raw.BackdropPath
		t.BackdropPath = &backdrop
	}
	if t.ReleaseDate == "" {
		t.ReleaseDate = models.ReleaseDateUnknown
	}
	return t
}

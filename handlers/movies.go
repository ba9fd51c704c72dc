package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/oliversimiyu/movie-downloader/models"
	"github.com/oliversimiyu/movie-downloader/services"
)

// MovieHandlers serves catalog search and per-title detail lookups.
type MovieHandlers struct {
	catalog *services.CatalogClient
}

func NewMovieHandlers(catalog *services.CatalogClient) *MovieHandlers {
	return &MovieHandlers{catalog: catalog}
}

// SearchMovies handles GET /search_movies?query=&page=. A missing query
// falls back to the popularity listing upstream.
func (h *MovieHandlers) SearchMovies(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}

	result, err := h.catalog.Search(r.Context(), query, page)
	if err != nil {
		slog.Error("Catalog search failed", "query", query, "page", page, "error", err)
		writeError(w, http.StatusBadGateway, "movie catalog is unavailable")
		return
	}

	if result.Outcome != models.SearchOK {
		slog.Warn("Serving degraded search results", "query", query, "outcome", result.Outcome.String())
	}

	writeJSON(w, http.StatusOK, result)
}

// MovieDetails handles GET /movie/{id}: the normalized title with its
// filtered trailers and aggregated providers.
func (h *MovieHandlers) MovieDetails(w http.ResponseWriter, r *http.Request) {
	movieID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid movie id")
		return
	}

	details, err := h.catalog.Details(r.Context(), movieID)
	if err != nil {
		if errors.Is(err, services.ErrUpstreamNotFound) {
			writeError(w, http.StatusNotFound, "movie not found")
			return
		}
		slog.Error("Catalog details lookup failed", "movie_id", movieID, "error", err)
		writeError(w, http.StatusBadGateway, "movie catalog is unavailable")
		return
	}

	writeJSON(w, http.StatusOK, details)
}

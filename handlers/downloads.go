package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/oliversimiyu/movie-downloader/middleware"
	"github.com/oliversimiyu/movie-downloader/models"
	"github.com/oliversimiyu/movie-downloader/services"
)

const statusDateFormat = "2006-01-02 15:04:05"

// JobStore is the persistence surface the acquisition routes need.
// *services.JobTracker is the production implementation.
type JobStore interface {
	Create(ctx context.Context, userID int64, movieTitle, initialStatus string) (*models.DownloadJob, error)
	Transition(ctx context.Context, jobID int64, newStatus, finalTitle string) error
	Get(ctx context.Context, userID, jobID int64) (*models.DownloadJob, error)
	Latest(ctx context.Context, userID int64) (*models.DownloadJob, error)
	History(ctx context.Context, userID int64) ([]models.DownloadJob, error)
}

var _ JobStore = (*services.JobTracker)(nil)

// DownloadHandlers ties the catalog, the extraction backend and the job
// store together for the acquisition routes.
type DownloadHandlers struct {
	catalog *services.CatalogClient
	fetcher services.MediaFetcher
	jobs    JobStore
	queue   *services.DownloadQueue

	// directJobStatus is the call-boundary choice for jobs created by the
	// raw-URL download route: "pending" records the job before extraction
	// and transitions it afterwards, "completed" records only successful
	// outcomes after the fact.
	directJobStatus string
}

func NewDownloadHandlers(catalog *services.CatalogClient, fetcher services.MediaFetcher, jobs JobStore, queue *services.DownloadQueue, directJobStatus string) *DownloadHandlers {
	if !models.IsValidJobStatus(directJobStatus) {
		directJobStatus = models.JobStatusPending
	}
	return &DownloadHandlers{
		catalog:         catalog,
		fetcher:         fetcher,
		jobs:            jobs,
		queue:           queue,
		directJobStatus: directJobStatus,
	}
}

// Download handles POST /download with body {"url": ...}. The extraction
// runs synchronously in the request handler; the response carries the
// final artifact filename.
func (h *DownloadHandlers) Download(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.URL == "" {
		writeError(w, http.StatusBadRequest, services.ErrMissingURL.Error())
		return
	}

	var job *models.DownloadJob
	if h.directJobStatus == models.JobStatusPending {
		created, err := h.jobs.Create(r.Context(), user.ID, body.URL, models.JobStatusPending)
		if err != nil {
			slog.Error("Failed to create download job", "user_id", user.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to record download")
			return
		}
		job = created
	}

	filename, err := h.fetcher.Fetch(r.Context(), body.URL)
	if err != nil {
		slog.Error("Download failed", "user_id", user.ID, "url", body.URL, "error", err)
		if job != nil {
			if terr := h.jobs.Transition(r.Context(), job.ID, models.JobStatusFailed, ""); terr != nil {
				slog.Error("Failed to record job outcome", "job_id", job.ID, "error", terr)
			}
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if job != nil {
		// Replace the URL placeholder with the resolved artifact name so
		// history reads the same regardless of the call pattern.
		if terr := h.jobs.Transition(r.Context(), job.ID, models.JobStatusCompleted, filename); terr != nil {
			slog.Error("Failed to record job outcome", "job_id", job.ID, "error", terr)
		}
	} else {
		// Completed-only call pattern: record the job after the fact.
		if _, cerr := h.jobs.Create(r.Context(), user.ID, filename, models.JobStatusCompleted); cerr != nil {
			slog.Error("Failed to record completed download", "user_id", user.ID, "error", cerr)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  "Download completed",
		"filename": filename,
	})
}

// DownloadMovie handles POST /download_movie/{id}: verifies availability,
// creates a pending job and hands the trailer source to the background
// queue. The response returns immediately; progress is observed through
// the status route.
func (h *DownloadHandlers) DownloadMovie(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

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

	if len(details.Providers) == 0 {
		writeError(w, http.StatusNotFound, "No streaming providers available for this movie")
		return
	}

	if len(details.Videos) == 0 {
		writeError(w, http.StatusBadRequest, "No trailer available to download for this movie")
		return
	}

	job, err := h.jobs.Create(r.Context(), user.ID, details.Title.Title, models.JobStatusPending)
	if err != nil {
		slog.Error("Failed to create download job", "user_id", user.ID, "movie_id", movieID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record download")
		return
	}

	sourceURL := services.TrailerWatchURL(details.Videos[0])
	if err := h.queue.Enqueue(services.DownloadTask{JobID: job.ID, SourceURL: sourceURL}); err != nil {
		slog.Error("Failed to enqueue download", "job_id", job.ID, "error", err)
		if terr := h.jobs.Transition(r.Context(), job.ID, models.JobStatusFailed, ""); terr != nil {
			slog.Error("Failed to record job outcome", "job_id", job.ID, "error", terr)
		}
		writeError(w, http.StatusServiceUnavailable, "download queue is full")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "started",
		"message": "Download started successfully",
		"movie": map[string]interface{}{
			"title":        details.Title.Title,
			"providers":    details.Providers,
			"release_date": details.ReleaseDate,
			"overview":     details.Overview,
		},
	})
}

// DownloadStatus handles GET /download_status/{id} for one of the user's
// jobs.
func (h *DownloadHandlers) DownloadStatus(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	jobID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "not_found"})
		return
	}

	job, err := h.jobs.Get(r.Context(), user.ID, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"status": "not_found"})
			return
		}
		slog.Error("Failed to load download job", "user_id", user.ID, "job_id", jobID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load download status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": job.Status,
		"title":  job.MovieTitle,
		"date":   job.CreatedAt.Format(statusDateFormat),
	})
}

// LatestStatus handles GET /download_status: the user's most recent job,
// used for polling right after a download is started.
func (h *DownloadHandlers) LatestStatus(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	job, err := h.jobs.Latest(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"status": "not_found"})
			return
		}
		slog.Error("Failed to load latest download job", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load download status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": job.Status,
		"title":  job.MovieTitle,
		"date":   job.CreatedAt.Format(statusDateFormat),
	})
}

// History handles GET /downloads/history: the user's full job history,
// most recent first.
func (h *DownloadHandlers) History(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	jobs, err := h.jobs.History(r.Context(), user.ID)
	if err != nil {
		slog.Error("Failed to load download history", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load download history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"downloads": jobs})
}

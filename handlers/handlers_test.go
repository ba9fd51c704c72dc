package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oliversimiyu/movie-downloader/config"
	"github.com/oliversimiyu/movie-downloader/middleware"
	"github.com/oliversimiyu/movie-downloader/models"
	"github.com/oliversimiyu/movie-downloader/services"
)

func testCatalog(upstreamURL string) *services.CatalogClient {
	cfg := &config.Config{
		TMDBBaseURL: upstreamURL,
		TMDBAPIKey:  "test-key",
		WatchRegion: "US",
	}
	return services.NewCatalogClient(cfg, nil)
}

// fetcherFunc adapts a function to the extraction backend interface.
type fetcherFunc func(ctx context.Context, sourceURL string) (string, error)

func (f fetcherFunc) Fetch(ctx context.Context, sourceURL string) (string, error) {
	return f(ctx, sourceURL)
}

// memoryJobStore is an in-memory JobStore with the same monotonic
// transition rule as the database-backed tracker.
type memoryJobStore struct {
	nextID int64
	jobs   map[int64]*models.DownloadJob
}

func newMemoryJobStore() *memoryJobStore {
	return &memoryJobStore{jobs: map[int64]*models.DownloadJob{}}
}

func (s *memoryJobStore) Create(_ context.Context, userID int64, movieTitle, initialStatus string) (*models.DownloadJob, error) {
	if !models.IsValidJobStatus(initialStatus) {
		return nil, fmt.Errorf("invalid initial job status %q", initialStatus)
	}
	s.nextID++
	now := time.Now()
	job := &models.DownloadJob{ID: s.nextID, UserID: userID, MovieTitle: movieTitle, Status: initialStatus, CreatedAt: now, UpdatedAt: now}
	s.jobs[job.ID] = job
	created := *job
	return &created, nil
}

func (s *memoryJobStore) Transition(_ context.Context, jobID int64, newStatus, finalTitle string) error {
	job, ok := s.jobs[jobID]
	if !ok || job.Status != models.JobStatusPending {
		return fmt.Errorf("download job %d is not pending", jobID)
	}
	job.Status = newStatus
	if finalTitle != "" {
		job.MovieTitle = finalTitle
	}
	job.UpdatedAt = time.Now()
	return nil
}

func (s *memoryJobStore) Get(_ context.Context, userID, jobID int64) (*models.DownloadJob, error) {
	job, ok := s.jobs[jobID]
	if !ok || job.UserID != userID {
		return nil, sql.ErrNoRows
	}
	found := *job
	return &found, nil
}

func (s *memoryJobStore) Latest(_ context.Context, userID int64) (*models.DownloadJob, error) {
	for id := s.nextID; id > 0; id-- {
		if job, ok := s.jobs[id]; ok && job.UserID == userID {
			latest := *job
			return &latest, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memoryJobStore) History(_ context.Context, userID int64) ([]models.DownloadJob, error) {
	jobs := []models.DownloadJob{}
	for id := s.nextID; id > 0; id-- {
		if job, ok := s.jobs[id]; ok && job.UserID == userID {
			jobs = append(jobs, *job)
		}
	}
	return jobs, nil
}

// withTestUser stands in for the auth middleware in tests.
func withTestUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := &models.User{ID: 7, Username: "tester"}
		next.ServeHTTP(w, r.WithContext(middleware.WithUser(r.Context(), user)))
	})
}

func TestSearchMoviesHandler(t *testing.T) {
	t.Run("Returns Normalized Results", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{
				"page": 1,
				"results": [{"id": 27205, "title": "Inception", "overview": "A thief...", "poster_path": "/inception.jpg", "release_date": "2010-07-16", "vote_average": 8.4, "vote_count": 35000}],
				"total_pages": 1,
				"total_results": 1
			}`))
		}))
		defer upstream.Close()

		h := NewMovieHandlers(testCatalog(upstream.URL))

		req := httptest.NewRequest(http.MethodGet, "/search_movies?query=Inception&page=1", nil)
		rec := httptest.NewRecorder()
		h.SearchMovies(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body struct {
			Results []struct {
				Title      string  `json:"title"`
				PosterPath *string `json:"poster_path"`
			} `json:"results"`
			Page         int `json:"page"`
			TotalPages   int `json:"total_pages"`
			TotalResults int `json:"total_results"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if len(body.Results) != 1 || body.Results[0].Title != "Inception" {
			t.Fatalf("expected Inception in results, got %+v", body.Results)
		}
		poster := body.Results[0].PosterPath
		if poster == nil || !strings.HasPrefix(*poster, "https://") {
			t.Errorf("expected absolute non-empty poster URL, got %v", poster)
		}
		if body.TotalPages != 1 || body.TotalResults != 1 {
			t.Errorf("pagination mismatch: %+v", body)
		}
	})

	t.Run("Degraded Upstream Yields Empty 200", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer upstream.Close()

		h := NewMovieHandlers(testCatalog(upstream.URL))

		req := httptest.NewRequest(http.MethodGet, "/search_movies?query=anything", nil)
		rec := httptest.NewRecorder()
		h.SearchMovies(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("degraded search must stay 200, got %d", rec.Code)
		}

		var body models.SearchPage
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(body.Results) != 0 || body.Page != 1 || body.TotalPages != 1 || body.TotalResults != 0 {
			t.Errorf("expected empty well-formed page, got %+v", body)
		}
	})

	t.Run("Unreachable Upstream Is 502", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		upstream.Close()

		h := NewMovieHandlers(testCatalog(upstream.URL))

		req := httptest.NewRequest(http.MethodGet, "/search_movies?query=anything", nil)
		rec := httptest.NewRecorder()
		h.SearchMovies(rec, req)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
	})
}

func TestMovieDetailsHandler(t *testing.T) {
	t.Run("Unknown Movie Is 404", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer upstream.Close()

		r := chi.NewRouter()
		r.Get("/movie/{id}", NewMovieHandlers(testCatalog(upstream.URL)).MovieDetails)

		req := httptest.NewRequest(http.MethodGet, "/movie/99999", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("Invalid ID Is 400", func(t *testing.T) {
		r := chi.NewRouter()
		r.Get("/movie/{id}", NewMovieHandlers(testCatalog("http://localhost:0")).MovieDetails)

		req := httptest.NewRequest(http.MethodGet, "/movie/notanumber", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestDownloadHandler(t *testing.T) {
	t.Run("Missing URL Is 400 With Error Payload", func(t *testing.T) {
		// Nil job tracker: the validation failure must reject the request
		// before any job record is touched.
		h := NewDownloadHandlers(nil, services.NewFetcher(&config.Config{DownloadDir: t.TempDir()}), nil, nil, models.JobStatusCompleted)

		r := chi.NewRouter()
		r.Use(withTestUser)
		r.Post("/download", h.Download)

		req := httptest.NewRequest(http.MethodPost, "/download", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}

		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body["error"] != "URL is required" {
			t.Errorf("expected URL is required error, got %q", body["error"])
		}
	})

	t.Run("Pending Flow Records Resolved Filename", func(t *testing.T) {
		fetcher := fetcherFunc(func(_ context.Context, sourceURL string) (string, error) {
			return "Big_Buck_Bunny.mp4", nil
		})
		store := newMemoryJobStore()
		h := NewDownloadHandlers(nil, fetcher, store, nil, models.JobStatusPending)

		r := chi.NewRouter()
		r.Use(withTestUser)
		r.Post("/download", h.Download)

		req := httptest.NewRequest(http.MethodPost, "/download", strings.NewReader(`{"url": "https://example.com/v/1"}`))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body struct {
			Success  bool   `json:"success"`
			Filename string `json:"filename"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !body.Success || body.Filename != "Big_Buck_Bunny.mp4" {
			t.Errorf("unexpected response %+v", body)
		}

		job, err := store.Get(context.Background(), 7, 1)
		if err != nil {
			t.Fatalf("expected a recorded job: %v", err)
		}
		if job.Status != models.JobStatusCompleted {
			t.Errorf("expected completed job, got %q", job.Status)
		}
		// The URL placeholder from creation must give way to the artifact
		// name, matching what the completed-only flow records.
		if job.MovieTitle != "Big_Buck_Bunny.mp4" {
			t.Errorf("expected resolved filename as title, got %q", job.MovieTitle)
		}
	})

	t.Run("Completed Flow Records Only Successful Outcome", func(t *testing.T) {
		fetcher := fetcherFunc(func(_ context.Context, sourceURL string) (string, error) {
			return "Sintel.mp4", nil
		})
		store := newMemoryJobStore()
		h := NewDownloadHandlers(nil, fetcher, store, nil, models.JobStatusCompleted)

		r := chi.NewRouter()
		r.Use(withTestUser)
		r.Post("/download", h.Download)

		req := httptest.NewRequest(http.MethodPost, "/download", strings.NewReader(`{"url": "https://example.com/v/2"}`))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		job, err := store.Get(context.Background(), 7, 1)
		if err != nil {
			t.Fatalf("expected a recorded job: %v", err)
		}
		if job.Status != models.JobStatusCompleted || job.MovieTitle != "Sintel.mp4" {
			t.Errorf("unexpected job record %+v", job)
		}
	})

	t.Run("Failed Fetch Marks Job Failed", func(t *testing.T) {
		fetcher := fetcherFunc(func(_ context.Context, sourceURL string) (string, error) {
			return "", errors.New("connection reset")
		})
		store := newMemoryJobStore()
		h := NewDownloadHandlers(nil, fetcher, store, nil, models.JobStatusPending)

		r := chi.NewRouter()
		r.Use(withTestUser)
		r.Post("/download", h.Download)

		req := httptest.NewRequest(http.MethodPost, "/download", strings.NewReader(`{"url": "https://example.com/v/3"}`))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}

		job, err := store.Get(context.Background(), 7, 1)
		if err != nil {
			t.Fatalf("expected a recorded job: %v", err)
		}
		if job.Status != models.JobStatusFailed {
			t.Errorf("expected failed job, got %q", job.Status)
		}
		if job.MovieTitle != "https://example.com/v/3" {
			t.Errorf("failed job should keep its URL title, got %q", job.MovieTitle)
		}
	})
}

func TestDownloadMovieHandler(t *testing.T) {
	t.Run("No Providers Creates No Job", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{
				"id": 42, "title": "Niche Film", "release_date": "1999-01-01",
				"videos": {"results": [{"name": "Trailer", "key": "abc", "site": "YouTube", "type": "Trailer"}]},
				"watch/providers": {"results": {}}
			}`))
		}))
		defer upstream.Close()

		// Nil job tracker and queue: reaching either would panic, so a
		// passing test proves no job record is created on this path.
		h := NewDownloadHandlers(testCatalog(upstream.URL), nil, nil, nil, models.JobStatusPending)

		r := chi.NewRouter()
		r.Use(withTestUser)
		r.Post("/download_movie/{id}", h.DownloadMovie)

		req := httptest.NewRequest(http.MethodPost, "/download_movie/42", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
		}

		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body["error"] != "No streaming providers available for this movie" {
			t.Errorf("unexpected error message %q", body["error"])
		}
	})

	t.Run("Starts Background Download For Available Movie", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{
				"id": 603, "title": "The Matrix", "release_date": "1999-03-31",
				"videos": {"results": [{"name": "Official Trailer", "key": "vKQi3bBA1y8", "site": "YouTube", "type": "Trailer"}]},
				"watch/providers": {"results": {"US": {"flatrate": [{"provider_name": "Max"}]}}}
			}`))
		}))
		defer upstream.Close()

		fetcher := fetcherFunc(func(_ context.Context, sourceURL string) (string, error) {
			return "The_Matrix_Official_Trailer.mp4", nil
		})
		store := newMemoryJobStore()
		// Workers are never started: the task stays buffered, so the job
		// must still read as pending when the response returns.
		queue := services.NewDownloadQueue(fetcher, store, 1)
		h := NewDownloadHandlers(testCatalog(upstream.URL), fetcher, store, queue, models.JobStatusPending)

		r := chi.NewRouter()
		r.Use(withTestUser)
		r.Post("/download_movie/{id}", h.DownloadMovie)

		req := httptest.NewRequest(http.MethodPost, "/download_movie/603", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body struct {
			Status string `json:"status"`
			Movie  struct {
				Title string `json:"title"`
			} `json:"movie"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body.Status != "started" || body.Movie.Title != "The Matrix" {
			t.Errorf("unexpected response %+v", body)
		}

		job, err := store.Get(context.Background(), 7, 1)
		if err != nil {
			t.Fatalf("expected a recorded job: %v", err)
		}
		if job.Status != models.JobStatusPending || job.MovieTitle != "The Matrix" {
			t.Errorf("unexpected job record %+v", job)
		}
	})

	t.Run("Unknown Movie Is 404", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer upstream.Close()

		h := NewDownloadHandlers(testCatalog(upstream.URL), nil, nil, nil, models.JobStatusPending)

		r := chi.NewRouter()
		r.Use(withTestUser)
		r.Post("/download_movie/{id}", h.DownloadMovie)

		req := httptest.NewRequest(http.MethodPost, "/download_movie/12345", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

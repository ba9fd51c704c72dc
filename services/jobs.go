package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oliversimiyu/movie-downloader/models"
)

// JobTracker owns the persisted download-job records. All mutations are
// single-row atomic commits; the job table is the only cross-request
// coordination point in the pipeline.
type JobTracker struct {
	db *sql.DB
}

func NewJobTracker(db *sql.DB) *JobTracker {
	return &JobTracker{db: db}
}

const jobColumns = "id, user_id, movie_title, status, created_at, updated_at"

// Create inserts a new job record. The initial status is a call-boundary
// choice; callers pass either pending or completed depending on the flow.
func (t *JobTracker) Create(ctx context.Context, userID int64, movieTitle, initialStatus string) (*models.DownloadJob, error) {
	if !models.IsValidJobStatus(initialStatus) {
		return nil, fmt.Errorf("invalid initial job status %q", initialStatus)
	}

	var job models.DownloadJob
	err := t.db.QueryRowContext(ctx,
		"INSERT INTO download_jobs (user_id, movie_title, status) VALUES ($1, $2, $3) RETURNING "+jobColumns,
		userID, movieTitle, initialStatus,
	).Scan(&job.ID, &job.UserID, &job.MovieTitle, &job.Status, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create download job: %w", err)
	}

	return &job, nil
}

// Transition moves a job to a terminal status. The row predicate keeps the
// move monotonic: a job already in a terminal state is never touched, so a
// status can transition at most once and never regresses to pending.
//
// A non-empty finalTitle replaces the title recorded at creation. The direct
// URL flow creates its pending job before the artifact name is known, so the
// source URL stands in as the title until completion supplies the filename.
func (t *JobTracker) Transition(ctx context.Context, jobID int64, newStatus, finalTitle string) error {
	if !models.IsTerminalJobStatus(newStatus) {
		return fmt.Errorf("invalid terminal job status %q", newStatus)
	}

	res, err := t.db.ExecContext(ctx,
		"UPDATE download_jobs SET status = $1, movie_title = COALESCE(NULLIF($2, ''), movie_title), updated_at = CURRENT_TIMESTAMP WHERE id = $3 AND status = $4",
		newStatus, finalTitle, jobID, models.JobStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to transition download job: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to transition download job: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("download job %d is not pending", jobID)
	}

	return nil
}

// Get returns one job scoped to its owning user.
func (t *JobTracker) Get(ctx context.Context, userID, jobID int64) (*models.DownloadJob, error) {
	var job models.DownloadJob
	err := t.db.QueryRowContext(ctx,
		"SELECT "+jobColumns+" FROM download_jobs WHERE id = $1 AND user_id = $2",
		jobID, userID,
	).Scan(&job.ID, &job.UserID, &job.MovieTitle, &job.Status, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load download job: %w", err)
	}
	return &job, nil
}

// Latest returns the most recent job for a user, used for status polling.
func (t *JobTracker) Latest(ctx context.Context, userID int64) (*models.DownloadJob, error) {
	var job models.DownloadJob
	err := t.db.QueryRowContext(ctx,
		"SELECT "+jobColumns+" FROM download_jobs WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1",
		userID,
	).Scan(&job.ID, &job.UserID, &job.MovieTitle, &job.Status, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load latest download job: %w", err)
	}
	return &job, nil
}

// History returns the full ordered list of a user's jobs, most recent first.
func (t *JobTracker) History(ctx context.Context, userID int64) ([]models.DownloadJob, error) {
	rows, err := t.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM download_jobs WHERE user_id = $1 ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load download history: %w", err)
	}
	defer rows.Close()

	jobs := []models.DownloadJob{}
	for rows.Next() {
		var job models.DownloadJob
		if err := rows.Scan(&job.ID, &job.UserID, &job.MovieTitle, &job.Status, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan download job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read download history: %w", err)
	}

	return jobs, nil
}

package models

import "time"

// Download job statuses. A job starts pending and moves exactly once to a
// terminal state; it never reverts.
const (
	JobStatusPending   = "pending"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// IsTerminalJobStatus reports whether status is a terminal state.
func IsTerminalJobStatus(status string) bool {
	return status == JobStatusCompleted || status == JobStatusFailed
}

// IsValidJobStatus reports whether status is one of the known job statuses.
func IsValidJobStatus(status string) bool {
	return status == JobStatusPending || IsTerminalJobStatus(status)
}

// DownloadJob is a persisted record of one download request and its
// lifecycle. Rows are kept indefinitely as history.
type DownloadJob struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	MovieTitle string    `json:"movie_title"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

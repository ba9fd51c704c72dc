package database

import (
	"database/sql"
	"fmt"
)

func RunMigrations(db *sql.DB) error {
	usersTableSQL := `
	CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username VARCHAR(255) UNIQUE NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		is_admin BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(usersTableSQL)
	if err != nil {
		return fmt.Errorf("failed to run users migration: %w", err)
	}

	jobsTableSQL := `
	CREATE TABLE IF NOT EXISTS download_jobs (
		id SERIAL PRIMARY KEY,
		user_id INTEGER REFERENCES users(id) ON DELETE CASCADE,
		movie_title VARCHAR(255) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_download_jobs_user_created
		ON download_jobs (user_id, created_at DESC);
	`
	_, err = db.Exec(jobsTableSQL)
	if err != nil {
		return fmt.Errorf("failed to run download_jobs migration: %w", err)
	}

	return nil
}

package database

import (
	"database/sql"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// SeedAdminUser creates the admin account from environment variables if it
// does not already exist. Seeding is skipped when ADMIN_PASSWORD is unset.
func SeedAdminUser(db *sql.DB) error {
	adminUsername := envOr("ADMIN_USERNAME", "admin")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	adminEmail := envOr("ADMIN_EMAIL", "admin@localhost")

	if adminPassword == "" {
		return nil
	}

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM users WHERE username = $1", adminUsername).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check for existing admin user: %w", err)
	}

	if count > 0 {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = db.Exec(
		"INSERT INTO users (username, email, password_hash, is_admin) VALUES ($1, $2, $3, $4)",
		adminUsername,
		adminEmail,
		string(hashedPassword),
		true,
	)
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	return nil
}

func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

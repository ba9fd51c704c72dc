package services

import (
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/oliversimiyu/movie-downloader/models"
)

// UserStore is the external auth collaborator's persistence side: account
// creation, credential checks and lookups. The core pipeline only ever
// consumes the resulting user ID for job ownership.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = "id, username, email, password_hash, is_admin, created_at, updated_at"

func (s *UserStore) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) Authenticate(username, password string) (*models.User, error) {
	user, err := s.scanUser(s.db.QueryRow(
		"SELECT "+userColumns+" FROM users WHERE username = $1",
		username,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("invalid credentials")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	return user, nil
}

func (s *UserStore) Register(username, email, password string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.scanUser(s.db.QueryRow(
		"INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING "+userColumns,
		username, email, string(hashedPassword),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	return user, nil
}

func (s *UserStore) GetByID(userID int64) (*models.User, error) {
	user, err := s.scanUser(s.db.QueryRow(
		"SELECT "+userColumns+" FROM users WHERE id = $1",
		userID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return user, nil
}

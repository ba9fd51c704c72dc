package handlers

import (
	"log/slog"
	"net/http"

	"github.com/oliversimiyu/movie-downloader/models"
	"github.com/oliversimiyu/movie-downloader/services"
)

// AuthHandlers is the session boundary in front of the core pipeline:
// registration, login and logout. Everything past it runs with a resolved
// user on the request context.
type AuthHandlers struct {
	users    *services.UserStore
	sessions *services.SessionManager
}

func NewAuthHandlers(users *services.UserStore, sessions *services.SessionManager) *AuthHandlers {
	return &AuthHandlers{users: users, sessions: sessions}
}

func (h *AuthHandlers) setupSession(w http.ResponseWriter, r *http.Request, user *models.User) error {
	session, err := h.sessions.Get(r)
	if err != nil {
		return err
	}

	session.Values["user_id"] = user.ID
	session.Values["username"] = user.Username

	return h.sessions.Save(w, r, session)
}

func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	email := r.FormValue("email")
	password := r.FormValue("password")

	if username == "" || email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	user, err := h.users.Register(username, email, password)
	if err != nil {
		slog.Error("Registration failed", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	slog.Info("User registered successfully", "username", username, "user_id", user.ID)

	// Automatically log in after registration
	if err := h.setupSession(w, r, user); err != nil {
		slog.Error("Failed to setup session", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"username": user.Username,
	})
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.users.Authenticate(username, password)
	if err != nil {
		slog.Warn("Login failed", "username", username, "error", err)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := h.setupSession(w, r, user); err != nil {
		slog.Error("Failed to setup session", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	slog.Info("User authenticated successfully", "username", username, "user_id", user.ID)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"username": user.Username,
	})
}

func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r)
	if err == nil {
		session.Options.MaxAge = -1
		h.sessions.Save(w, r, session)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

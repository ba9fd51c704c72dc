package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/oliversimiyu/movie-downloader/models"
	"github.com/oliversimiyu/movie-downloader/services"
)

type contextKey string

const userContextKey contextKey = "current_user"

// Auth resolves the session user before protected handlers run.
type Auth struct {
	sessions *services.SessionManager
	users    *services.UserStore
}

func NewAuth(sessions *services.SessionManager, users *services.UserStore) *Auth {
	return &Auth{sessions: sessions, users: users}
}

// parseUserID converts various userID types stored in the session to int64
func parseUserID(userID interface{}) (int64, error) {
	switch v := userID.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, strconv.ErrSyntax
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, reason string) {
	slog.Debug("Rejecting unauthenticated request", "path", r.URL.Path, "reason", reason)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
}

// RequireAuth rejects requests without a valid session and stores the
// resolved user on the request context for downstream handlers.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := a.sessions.Get(r)
		if err != nil {
			unauthorized(w, r, "no session found")
			return
		}

		userID, ok := session.Values["user_id"]
		if !ok {
			unauthorized(w, r, "user not authenticated")
			return
		}

		userIDInt, err := parseUserID(userID)
		if err != nil {
			unauthorized(w, r, "invalid user_id in session")
			return
		}

		// Verify the user still exists
		user, err := a.users.GetByID(userIDInt)
		if err != nil {
			unauthorized(w, r, "user not found")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFrom returns the authenticated user stored on the context, or nil.
func UserFrom(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

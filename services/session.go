package services

import (
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/oliversimiyu/movie-downloader/config"
)

const sessionName = "movie-downloader-session"

// SessionManager wraps the cookie store so handlers never touch shared
// global session state.
type SessionManager struct {
	store *sessions.CookieStore
}

func NewSessionManager(cfg *config.Config) *SessionManager {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))

	secure := false
	if cfg.Environment == "production" {
		secure = true
	}

	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &SessionManager{store: store}
}

func (m *SessionManager) Get(r *http.Request) (*sessions.Session, error) {
	return m.store.Get(r, sessionName)
}

func (m *SessionManager) Save(w http.ResponseWriter, r *http.Request, session *sessions.Session) error {
	return session.Save(r, w)
}

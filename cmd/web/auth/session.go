package auth

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

const (
	SessionName       = "pointdeck_admin"
	AccessLevelKey    = "access_level"
	SessionCreatedKey = "created_at"
)

// SessionManager issues and validates the admin cookie session. Regular
// estimation participants are anonymous and never touch this; it guards the
// admin surface only.
type SessionManager struct {
	store *sessions.CookieStore
}

func NewSessionManager(secret string) *SessionManager {
	if secret == "" {
		secret = generateSecret()
	}
	return &SessionManager{
		store: sessions.NewCookieStore([]byte(secret)),
	}
}

func generateSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.StdEncoding.EncodeToString(b)
}

// SaveAdminSession stores an authenticated admin session cookie.
func (sm *SessionManager) SaveAdminSession(w http.ResponseWriter, r *http.Request) error {
	session, _ := sm.store.Get(r, SessionName)
	session.Values[AccessLevelKey] = string(AccessAdmin)
	session.Values[SessionCreatedKey] = time.Now().Unix()

	// Determine if we're on HTTPS
	isHTTPS := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"

	session.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400, // 1 day
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   isHTTPS,
	}

	return session.Save(r, w)
}

// GetAccessLevel reads the stored access level from the session cookie.
// Returns AccessUnauthenticated if the session is missing or invalid.
func (sm *SessionManager) GetAccessLevel(r *http.Request) AccessLevel {
	session, err := sm.store.Get(r, SessionName)
	if err != nil {
		_, cookieErr := r.Cookie(SessionName)
		if cookieErr == nil {
			slog.Warn("failed to decode admin session", "error", err, "host", r.Host)
		}
		return AccessUnauthenticated
	}

	val, ok := session.Values[AccessLevelKey]
	if !ok {
		return AccessUnauthenticated
	}

	str, ok := val.(string)
	if !ok {
		return AccessUnauthenticated
	}

	if AccessLevel(str) == AccessAdmin {
		return AccessAdmin
	}
	return AccessUnauthenticated
}

// IsAdmin reports whether the request carries a valid admin session.
func (sm *SessionManager) IsAdmin(r *http.Request) bool {
	return sm.GetAccessLevel(r) == AccessAdmin
}

// GetSessionCreatedAt returns the time the session was created.
// Returns zero time if the session is missing or invalid.
func (sm *SessionManager) GetSessionCreatedAt(r *http.Request) time.Time {
	session, err := sm.store.Get(r, SessionName)
	if err != nil {
		return time.Time{}
	}

	val, ok := session.Values[SessionCreatedKey]
	if !ok {
		return time.Time{}
	}

	unix, ok := val.(int64)
	if !ok {
		return time.Time{}
	}

	return time.Unix(unix, 0)
}

func (sm *SessionManager) ClearSession(w http.ResponseWriter, r *http.Request) error {
	session, _ := sm.store.Get(r, SessionName)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

type AccessLevel string

const (
	AccessUnauthenticated AccessLevel = "unauthenticated"
	AccessAdmin           AccessLevel = "admin"
)

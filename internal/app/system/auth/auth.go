// Package auth manages the staff session cookie. The API is consumed by a
// browser SPA, so authentication is a gorilla/sessions cookie rather than a
// bearer token; unauthenticated requests get a 401 JSON body.
package auth

import (
	"context"
	"encoding/hex"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	SessionName = "buildbee-session"

	isAuthKey  = "is_authenticated"
	staffIDKey = "staff_id"
	staffName  = "staff_name"
	staffEmail = "staff_email"
	staffRole  = "staff_role"
)

// Store is initialised once via InitSessionStore.
var Store *sessions.CookieStore

// SessionStaff is what we cache in the session & inject into r.Context().
type SessionStaff struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type ctxKey string

const currentStaffKey ctxKey = "currentStaff"

// CurrentStaff returns the signed-in staff member & "found?" flag.
func CurrentStaff(r *http.Request) (*SessionStaff, bool) {
	u, ok := r.Context().Value(currentStaffKey).(*SessionStaff)
	return u, ok
}

// InitSessionStore initializes the global session Store. An empty session
// key falls back to a random per-process key: sessions then survive only
// until restart, which is acceptable for dev but logged loudly.
func InitSessionStore(sessionKey, domain string, secure bool, logger *zap.Logger) error {
	if sessionKey == "" {
		sessionKey = hex.EncodeToString(securecookie.GenerateRandomKey(32))
		logger.Warn("no session key configured; generated an ephemeral one (sessions reset on restart)")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
	}
	// Secure deployments serve the SPA cross-site over HTTPS, which needs
	// SameSite=None; local http gets Lax so the cookie is accepted at all.
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts
	Store = store

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain))
	return nil
}

// SignIn records the staff member in the session cookie.
func SignIn(w http.ResponseWriter, r *http.Request, staff SessionStaff) error {
	sess, _ := Store.Get(r, SessionName)
	sess.Values[isAuthKey] = true
	sess.Values[staffIDKey] = staff.ID
	sess.Values[staffName] = staff.Name
	sess.Values[staffEmail] = staff.Email
	sess.Values[staffRole] = staff.Role
	return sess.Save(r, w)
}

// SignOut clears the session cookie.
func SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := Store.Get(r, SessionName)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// LoadSessionStaff injects the staff member into context if signed in.
// If the session store has not been initialized yet, it is a no-op.
func LoadSessionStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Store == nil {
			next.ServeHTTP(w, r)
			return
		}

		sess, _ := Store.Get(r, SessionName)
		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			u := &SessionStaff{
				ID:    getString(sess, staffIDKey),
				Name:  getString(sess, staffName),
				Email: getString(sess, staffEmail),
				Role:  getString(sess, staffRole),
			}
			r = withStaff(r, u)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn ensures there is a staff member in context (set by
// LoadSessionStaff); otherwise it answers 401 with the standard JSON error
// shape.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentStaff(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"authentication required"}`))
	})
}

func withStaff(r *http.Request, u *SessionStaff) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentStaffKey, u))
}

func getString(s *sessions.Session, key string) string {
	v, _ := s.Values[key].(string)
	return v
}

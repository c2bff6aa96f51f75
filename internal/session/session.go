// Package session keeps the signed-in user and one-shot flash messages in
// a signed cookie.
package session

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	cookieName = "zoom_meetings_session"
	keyUserID  = "uid"

	KindSuccess = "success"
	KindError   = "error"
)

type Flash struct {
	Kind    string
	Message string
}

type Manager struct {
	store *sessions.CookieStore
}

func NewManager(secret []byte, secure bool) *Manager {
	cs := sessions.NewCookieStore(secret)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 3600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: cs}
}

// get never fails the request: a cookie that no longer verifies (rotated
// secret, tampering) yields a fresh, empty session.
func (m *Manager) get(r *http.Request) *sessions.Session {
	s, _ := m.store.Get(r, cookieName)
	return s
}

// UserID returns the signed-in user's id.
func (m *Manager) UserID(r *http.Request) (string, bool) {
	id, ok := m.get(r).Values[keyUserID].(string)
	return id, ok && id != ""
}

func (m *Manager) Login(w http.ResponseWriter, r *http.Request, userID string) error {
	s := m.get(r)
	s.Values[keyUserID] = userID
	return s.Save(r, w)
}

// Logout clears the user but keeps pending flashes.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	s := m.get(r)
	delete(s.Values, keyUserID)
	return s.Save(r, w)
}

func (m *Manager) AddFlash(w http.ResponseWriter, r *http.Request, kind, msg string) error {
	s := m.get(r)
	s.AddFlash(msg, kind)
	return s.Save(r, w)
}

// Flashes drains pending messages, success first.
func (m *Manager) Flashes(w http.ResponseWriter, r *http.Request) []Flash {
	s := m.get(r)
	var out []Flash
	for _, kind := range []string{KindSuccess, KindError} {
		for _, v := range s.Flashes(kind) {
			if msg, ok := v.(string); ok {
				out = append(out, Flash{Kind: kind, Message: msg})
			}
		}
	}
	if len(out) > 0 {
		_ = s.Save(r, w)
	}
	return out
}

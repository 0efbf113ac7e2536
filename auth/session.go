package auth

import (
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	SessionName = "sessionid"
	userIDKey   = "user_id"
	flashKey    = "_flash"
)

type FlashLevel string

const (
	FlashSuccess FlashLevel = "success"
	FlashError   FlashLevel = "error"
)

// Flash is a one-shot status message shown on the next rendered page.
type Flash struct {
	Level FlashLevel
	Text  string
}

func init() {
	gob.Register(Flash{})
}

type SessionOptions struct {
	// HashKey signs the cookie. BlockKey, when set, also encrypts it and
	// must be 16, 24 or 32 bytes long.
	HashKey  []byte
	BlockKey []byte
	MaxAge   int
	Secure   bool
}

// SessionManager issues and destroys cookie sessions and carries flash
// messages across redirects.
type SessionManager struct {
	store *sessions.CookieStore
}

func NewSessionManager(opts SessionOptions) *SessionManager {
	keys := [][]byte{opts.HashKey}
	if len(opts.BlockKey) > 0 {
		keys = append(keys, opts.BlockKey)
	}
	store := sessions.NewCookieStore(keys...)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(opts.MaxAge)
	return &SessionManager{store: store}
}

// session returns the request's session. The store caches it per request,
// and a cookie that fails to decode still yields a usable new session.
func (m *SessionManager) session(r *http.Request) *sessions.Session {
	s, _ := m.store.Get(r, SessionName)
	return s
}

// Login binds the session to userID.
func (m *SessionManager) Login(w http.ResponseWriter, r *http.Request, userID int64) error {
	s := m.session(r)
	for k := range s.Values {
		if k != flashKey {
			delete(s.Values, k)
		}
	}
	s.Values[userIDKey] = userID
	return s.Save(r, w)
}

// Logout destroys the session. Calling it without a session is fine.
func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	s := m.session(r)
	if s.IsNew {
		return nil
	}
	s.Values = make(map[interface{}]interface{})
	s.Options.MaxAge = -1
	return s.Save(r, w)
}

// UserID returns the id bound to the session, if any.
func (m *SessionManager) UserID(r *http.Request) (int64, bool) {
	id, ok := m.session(r).Values[userIDKey].(int64)
	return id, ok
}

func (m *SessionManager) AddFlash(w http.ResponseWriter, r *http.Request, level FlashLevel, text string) error {
	s := m.session(r)
	s.AddFlash(Flash{Level: level, Text: text}, flashKey)
	return s.Save(r, w)
}

// Flashes consumes the pending flash messages. It must run before the
// response body is written.
func (m *SessionManager) Flashes(w http.ResponseWriter, r *http.Request) ([]Flash, error) {
	s := m.session(r)
	raw := s.Flashes(flashKey)
	if len(raw) == 0 {
		return nil, nil
	}
	flashes := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			flashes = append(flashes, f)
		}
	}
	return flashes, s.Save(r, w)
}

package auth

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
)

// MinSessionBytes is the size a session file must exceed to be reused.
// Smaller files are treated as absent or corrupt.
const MinSessionBytes int64 = 250

// ErrNoSession is returned by Load when there is no usable session file
var ErrNoSession = errors.New("no usable session file")

// StateStore persists the browser authentication state between runs
type StateStore struct {
	path     string
	minBytes int64
}

// SessionState represents the persisted session data
type SessionState struct {
	Cookies    []SavedCookie `json:"cookies"`
	CapturedAt time.Time     `json:"captured_at"`
	ExpiresAt  time.Time     `json:"expires_at"`
}

// SavedCookie is the on-disk form of a browser cookie. Enum fields are kept as
// plain strings so values the protocol package does not know still load.
type SavedCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"http_only,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	Session  bool    `json:"session,omitempty"`
	SameSite string  `json:"same_site,omitempty"`
	Priority string  `json:"priority,omitempty"`
}

func savedCookie(c *network.Cookie) SavedCookie {
	return SavedCookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  c.Expires,
		HTTPOnly: c.HTTPOnly,
		Secure:   c.Secure,
		Session:  c.Session,
		SameSite: string(c.SameSite),
		Priority: string(c.Priority),
	}
}

// Cookie converts back to the protocol type for injection
func (c SavedCookie) Cookie() *network.Cookie {
	return &network.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  c.Expires,
		HTTPOnly: c.HTTPOnly,
		Secure:   c.Secure,
		Session:  c.Session,
		SameSite: network.CookieSameSite(c.SameSite),
		Priority: network.CookiePriority(c.Priority),
	}
}

// BrowserCookies returns the saved cookies in protocol form
func (st *SessionState) BrowserCookies() []*network.Cookie {
	cookies := make([]*network.Cookie, 0, len(st.Cookies))
	for _, c := range st.Cookies {
		cookies = append(cookies, c.Cookie())
	}
	return cookies
}

// NewStateStore creates a state store at path. A minBytes of zero means MinSessionBytes.
func NewStateStore(path string, minBytes int64) *StateStore {
	if minBytes <= 0 {
		minBytes = MinSessionBytes
	}
	return &StateStore{path: path, minBytes: minBytes}
}

// Path returns the session file location
func (s *StateStore) Path() string {
	return s.path
}

// Usable reports whether the session file exists and is larger than the minimum size
func (s *StateStore) Usable() bool {
	info, err := os.Stat(s.path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Size() > s.minBytes
}

// Save persists cookies to disk, replacing any previous state
func (s *StateStore) Save(cookies []*network.Cookie) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}

	// Earliest expiry among persistent cookies
	var earliestExpiry time.Time
	saved := make([]SavedCookie, 0, len(cookies))
	for _, c := range cookies {
		saved = append(saved, savedCookie(c))
		if c.Session || c.Expires <= 0 {
			continue
		}
		exp := time.Unix(int64(c.Expires), 0)
		if earliestExpiry.IsZero() || exp.Before(earliestExpiry) {
			earliestExpiry = exp
		}
	}

	state := SessionState{
		Cookies:    saved,
		CapturedAt: time.Now(),
		ExpiresAt:  earliestExpiry,
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0600)
}

// Load retrieves the persisted state
func (s *StateStore) Load() (*SessionState, error) {
	if !s.Usable() {
		return nil, ErrNoSession
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var state SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

// Truncate empties the session file so the next run cannot reuse it
func (s *StateStore) Truncate() error {
	return os.WriteFile(s.path, nil, 0600)
}

// Clear removes the session file
func (s *StateStore) Clear() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Expired reports whether the earliest persistent cookie has passed its expiry
func (st *SessionState) Expired(now time.Time) bool {
	return !st.ExpiresAt.IsZero() && now.After(st.ExpiresAt)
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/ibeckermayer/kudos4me/internal/config"
	"github.com/ibeckermayer/kudos4me/internal/dom"
	"github.com/ibeckermayer/kudos4me/internal/logging"
)

// Login page selectors
const (
	EmailInput        = `#email`
	PasswordInput     = `#password`
	SubmitButton      = `button[type='submit']`
	LoggedInIndicator = `.user-menu`
)

var ErrLoginFailed = errors.New("login failed")

// Manager handles site authentication
type Manager struct {
	store       *StateStore
	baseURL     string
	waitTimeout time.Duration
}

// NewManager creates a new auth manager
func NewManager(store *StateStore, baseURL string, waitTimeout time.Duration) *Manager {
	return &Manager{store: store, baseURL: baseURL, waitTimeout: waitTimeout}
}

// SessionUsable checks if a reusable session file exists
func (m *Manager) SessionUsable() bool {
	return m.store.Usable()
}

// LoginURL returns the sign-in page address
func (m *Manager) LoginURL() (string, error) {
	return url.JoinPath(m.baseURL, "login")
}

// Login signs in with email and password. Success is not verified beyond the
// form submitting; a bad login shows up later as an empty feed.
func (m *Manager) Login(ctx context.Context, b dom.Browser, creds config.Credentials) error {
	logger := logging.FromContext(ctx)

	loginURL, err := m.LoginURL()
	if err != nil {
		return fmt.Errorf("%w: invalid base url: %w", ErrLoginFailed, err)
	}

	if err := b.Navigate(ctx, loginURL); err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	if err := b.Fill(ctx, EmailInput, creds.Email); err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	if err := b.Fill(ctx, PasswordInput, creds.Password); err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	if err := b.ClickOn(ctx, SubmitButton); err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	// Give the post-submit navigation a chance to land before the caller moves on
	ok, err := b.WaitFor(ctx, LoggedInIndicator, m.waitTimeout)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	if !ok {
		logger.Warn("login submitted but signed-in menu did not appear", slog.Duration("waited", m.waitTimeout))
	}

	logger.Info("logged in")
	return nil
}

// Resume loads the stored session into the browser
func (m *Manager) Resume(ctx context.Context, b dom.Browser) error {
	logger := logging.FromContext(ctx)

	state, err := m.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if state.Expired(time.Now()) {
		logger.Warn("stored session looks expired, trying it anyway", slog.Time("expires_at", state.ExpiresAt))
	}

	if err := b.SetCookies(ctx, state.BrowserCookies()); err != nil {
		return fmt.Errorf("failed to inject cookies: %w", err)
	}

	logger.Info("session loaded", slog.String("path", m.store.Path()), slog.Int("cookies", len(state.Cookies)))
	return nil
}

// Capture saves the browser's current session
func (m *Manager) Capture(ctx context.Context, b dom.Browser) error {
	cookies, err := b.Cookies(ctx)
	if err != nil {
		return fmt.Errorf("failed to extract cookies: %w", err)
	}
	if err := m.store.Save(cookies); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	logging.FromContext(ctx).Info("saved session data", slog.String("path", m.store.Path()))
	return nil
}

// Invalidate empties the stored session and drops the browser's cookies
func (m *Manager) Invalidate(ctx context.Context, b dom.Browser) error {
	if err := m.store.Truncate(); err != nil {
		return fmt.Errorf("failed to truncate session file: %w", err)
	}
	if err := b.ClearCookies(ctx); err != nil {
		return fmt.Errorf("failed to clear cookies: %w", err)
	}
	return nil
}

package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ibeckermayer/kudos4me/internal/config"
	"github.com/ibeckermayer/kudos4me/internal/htmlpage"
)

const loginHTML = `<html><body><form>
<input id="email"><input id="password" type="password">
<button type="submit" id="submit">Log In</button>
</form></body></html>`

const dashboardHTML = `<html><body><div class="user-menu"><a href="/athletes/7">me</a></div></body></html>`

func newLoginPage(t *testing.T) *htmlpage.Page {
	t.Helper()
	p, err := htmlpage.New(`<html></html>`)
	if err != nil {
		t.Fatal(err)
	}
	p.Route("https://www.strava.com/login", loginHTML)
	p.OnClick = func(s *goquery.Selection) error {
		if s.Is("button[type='submit']") {
			p.SetCookies(context.Background(), testCookies())
			return p.SetHTML(dashboardHTML)
		}
		return nil
	}
	return p
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	page := newLoginPage(t)
	m := NewManager(NewStateStore(filepath.Join(t.TempDir(), "s.json"), 0), "https://www.strava.com/", time.Second)

	creds := config.Credentials{Email: "me@example.com", Password: "pw"}
	if err := m.Login(ctx, page, creds); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if v, _ := page.Filled(EmailInput); v != creds.Email {
		t.Errorf("email filled = %q", v)
	}
	if v, _ := page.Filled(PasswordInput); v != creds.Password {
		t.Errorf("password filled = %q", v)
	}
	if clicks := page.Clicks(); len(clicks) != 1 || clicks[0] != "submit" {
		t.Errorf("clicks = %v", clicks)
	}
}

func TestLoginMissingForm(t *testing.T) {
	ctx := context.Background()
	page, _ := htmlpage.New(`<html><body>maintenance</body></html>`)
	m := NewManager(NewStateStore(filepath.Join(t.TempDir(), "s.json"), 0), "https://www.strava.com/", time.Second)

	err := m.Login(ctx, page, config.Credentials{Email: "a", Password: "b"})
	if !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed, got %v", err)
	}
}

func TestLoginKeepsUnderlyingError(t *testing.T) {
	m := NewManager(NewStateStore(filepath.Join(t.TempDir(), "s.json"), 0), "https://www.strava.com/", time.Second)
	creds := config.Credentials{Email: "a", Password: "b"}

	strict, _ := htmlpage.New(`<html></html>`)
	strict.Strict = true
	err := m.Login(context.Background(), strict, creds)
	if !errors.Is(err, ErrLoginFailed) || !errors.Is(err, htmlpage.ErrPageNotFound) {
		t.Errorf("unrouted login page: got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = m.Login(ctx, newLoginPage(t), creds)
	if !errors.Is(err, ErrLoginFailed) || !errors.Is(err, context.Canceled) {
		t.Errorf("canceled login: got %v", err)
	}
}

func TestCaptureAndResume(t *testing.T) {
	ctx := context.Background()
	store := NewStateStore(filepath.Join(t.TempDir(), "session.json"), 0)
	m := NewManager(store, "https://www.strava.com/", time.Second)

	src, _ := htmlpage.New(dashboardHTML)
	src.SetCookies(ctx, testCookies())
	if err := m.Capture(ctx, src); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if !m.SessionUsable() {
		t.Fatal("captured session should be usable")
	}

	dst, _ := htmlpage.New(`<html></html>`)
	if err := m.Resume(ctx, dst); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	cookies, _ := dst.Cookies(ctx)
	if len(cookies) != 2 {
		t.Fatalf("resumed cookies = %d", len(cookies))
	}
}

func TestResumeWithoutSession(t *testing.T) {
	m := NewManager(NewStateStore(filepath.Join(t.TempDir(), "none.json"), 0), "https://www.strava.com/", time.Second)
	page, _ := htmlpage.New(`<html></html>`)

	if err := m.Resume(context.Background(), page); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	store := NewStateStore(filepath.Join(t.TempDir(), "session.json"), 0)
	m := NewManager(store, "https://www.strava.com/", time.Second)
	store.Save(testCookies())

	page, _ := htmlpage.New(`<html></html>`)
	page.SetCookies(ctx, testCookies())

	if err := m.Invalidate(ctx, page); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if m.SessionUsable() {
		t.Error("session should be unusable after invalidate")
	}
	if cookies, _ := page.Cookies(ctx); len(cookies) != 0 {
		t.Errorf("browser cookies left: %d", len(cookies))
	}
}

package kudos

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"

	"github.com/ibeckermayer/kudos4me/internal/auth"
	"github.com/ibeckermayer/kudos4me/internal/config"
	"github.com/ibeckermayer/kudos4me/internal/htmlpage"
)

const (
	ownID        = "1001"
	baseURL      = "https://www.strava.com/"
	loginURL     = "https://www.strava.com/login"
	dashboardURL = "https://www.strava.com/dashboard?num_entries=100"
)

const loginHTML = `<html><body><form>
<input id="email"><input id="password" type="password">
<button type="submit" id="submit">Log In</button>
</form></body></html>`

func kudosButton(id string, unfilled bool) string {
	if unfilled {
		return fmt.Sprintf(`<button data-testid="unfilled_kudos" id="kudos-%s">Give kudos</button>`, id)
	}
	return fmt.Sprintf(`<button data-testid="filled_kudos" id="kudos-%s">Kudos given</button>`, id)
}

// activity is a single-participant feed entry
func activity(id, owner string, unfilled bool) string {
	return fmt.Sprintf(`<div data-testid="web-feed-entry" id="entry-%s">
<div data-testid="entry-header"><a data-testid="owners-name" href="/athletes/%s">Athlete %s</a></div>
<div data-testid="kudos_comments_container">%s</div>
</div>`, id, owner, owner, kudosButton(id, unfilled))
}

// groupActivity is a feed entry with one header and kudos container per participant
func groupActivity(id string, owners ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div data-testid="web-feed-entry" id="entry-%s"><ul>`, id)
	for i, owner := range owners {
		fmt.Fprintf(&b, `<li><div data-testid="entry-header"><a data-testid="owners-name" href="/athletes/%s">Athlete %s</a></div>`, owner, owner)
		fmt.Fprintf(&b, `<div data-testid="kudos_comments_container">%s</div></li>`, kudosButton(fmt.Sprintf("%s-%d", id, i), true))
	}
	b.WriteString(`</ul></div>`)
	return b.String()
}

func clubPost(id string) string {
	return fmt.Sprintf(`<div data-testid="web-feed-entry" id="entry-%s">
<div data-testid="group-header">Morning Runners</div>
<a data-testid="owners-name" href="/athletes/555">Coach</a>
%s
</div>`, id, kudosButton(id, true))
}

func clubMemberPost(id string) string {
	return fmt.Sprintf(`<div data-testid="web-feed-entry" id="entry-%s">
<div class="clubMemberPostHeaderLinks"><a data-testid="owners-name" href="/athletes/556">Member</a></div>
%s
</div>`, id, kudosButton(id, true))
}

func dashboard(entries ...string) string {
	return fmt.Sprintf(`<html><body>
<nav><div class="user-menu"><a href="/athletes/%s">Me</a></div></nav>
<div class="feed">%s</div>
</body></html>`, ownID, strings.Join(entries, "\n"))
}

func sessionCookies() []*network.Cookie {
	return []*network.Cookie{
		{
			Name: "_strava4_session", Value: strings.Repeat("s", 64), Domain: ".strava.com", Path: "/",
			Secure: true, HTTPOnly: true, Session: true,
			Priority: network.CookiePriorityMedium, SourceScheme: network.CookieSourceSchemeSecure,
		},
		{
			Name: "strava_remember_id", Value: ownID, Domain: ".strava.com", Path: "/",
			Secure: true, Expires: float64(time.Now().Add(720 * time.Hour).Unix()),
			Priority: network.CookiePriorityMedium, SourceScheme: network.CookieSourceSchemeSecure,
		},
	}
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	c.t = c.t.Add(d)
	return ctx.Err()
}

type harness struct {
	page    *htmlpage.Page
	runner  *Runner
	clock   *fakeClock
	store   *auth.StateStore
	submits int

	// afterLogin, when set, replaces the dashboard served after each login
	afterLogin string
}

func newHarness(t *testing.T, dashboardHTML string, tune ...func(*Options)) *harness {
	t.Helper()

	page, err := htmlpage.New(`<html><body></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	page.Strict = true
	page.Route(loginURL, loginHTML)
	page.Route(dashboardURL, dashboardHTML)

	h := &harness{
		page:  page,
		clock: &fakeClock{t: time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)},
		store: auth.NewStateStore(filepath.Join(t.TempDir(), "session.json"), 0),
	}

	page.OnClick = func(s *goquery.Selection) error {
		if s.Is("button[type='submit']") {
			h.submits++
			page.SetCookies(context.Background(), sessionCookies())
			if h.afterLogin != "" {
				page.Route(dashboardURL, h.afterLogin)
			}
		}
		return nil
	}

	opts := DefaultOptions()
	opts.WaitTimeout = time.Second
	opts.LazyLoad = LazyLoadPolicy{}
	for _, f := range tune {
		f(&opts)
	}

	mgr := auth.NewManager(h.store, baseURL, time.Second)
	creds := config.Credentials{Email: "me@example.com", Password: "secret"}
	h.runner = New(page, mgr, creds, opts)
	h.runner.now = h.clock.now
	h.runner.sleep = h.clock.sleep
	return h
}

// fillOnClick makes clicked kudos buttons render as already given
func (h *harness) fillOnClick() {
	prev := h.page.OnClick
	h.page.OnClick = func(s *goquery.Selection) error {
		if err := prev(s); err != nil {
			return err
		}
		if v, _ := s.Attr("data-testid"); v == "unfilled_kudos" {
			s.SetAttr("data-testid", "filled_kudos")
		}
		return nil
	}
}

// kudosClicks returns the clicked elements other than the login button
func (h *harness) kudosClicks() []string {
	var out []string
	for _, c := range h.page.Clicks() {
		if c != "submit" {
			out = append(out, c)
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func authlessCreds() config.Credentials {
	return config.Credentials{}
}

package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"

	"github.com/ibeckermayer/kudos4me/internal/config"
	"github.com/ibeckermayer/kudos4me/internal/htmlpage"
	"github.com/ibeckermayer/kudos4me/internal/store"
)

const loginHTML = `<html><body><form>
<input id="email"><input id="password">
<button type="submit" id="submit">Log In</button>
</form></body></html>`

const dashboardHTML = `<html><body>
<div class="user-menu"><a href="/athletes/1001">Me</a></div>
<div data-testid="web-feed-entry">
<a data-testid="owners-name" href="/athletes/2002">Friend</a>
<button data-testid="unfilled_kudos" id="kudos-1">Give kudos</button>
</div>
</body></html>`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Session.Path = filepath.Join(t.TempDir(), "session.json")
	cfg.Run.ClickPauseMS = 0
	cfg.LazyLoad.Iterations = 0
	cfg.Browser.WaitTimeoutSeconds = 1
	return cfg
}

func offlineOpener(t *testing.T, closed *bool) PageOpener {
	return func(ctx context.Context) (Page, error) {
		p, err := htmlpage.New(`<html></html>`)
		if err != nil {
			return nil, err
		}
		p.Strict = true
		p.Route("https://www.strava.com/login", loginHTML)
		p.Route("https://www.strava.com/dashboard?num_entries=100", dashboardHTML)
		p.OnClick = func(s *goquery.Selection) error {
			if s.Is("button[type='submit']") {
				p.SetCookies(ctx, []*network.Cookie{
					{Name: "_strava4_session", Value: strings.Repeat("v", 200), Domain: ".strava.com", Path: "/", Session: true},
				})
			}
			return nil
		}
		return &trackedPage{Page: p, closed: closed}, nil
	}
}

type trackedPage struct {
	*htmlpage.Page
	closed *bool
}

func (p *trackedPage) Close() error {
	*p.closed = true
	return nil
}

func TestRunOnceRecordsHistory(t *testing.T) {
	cfg := testConfig(t)
	history, err := store.New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer history.Close()
	reports := store.NewReportCache(filepath.Join(t.TempDir(), "runs"))

	var closed bool
	a := New(cfg, config.Credentials{Email: "me@example.com", Password: "pw"}, offlineOpener(t, &closed),
		WithHistory(history), WithReports(reports))

	result, err := a.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if result.Given != 1 {
		t.Errorf("given = %d; want 1", result.Given)
	}
	if !closed {
		t.Error("browser was not closed")
	}

	info, err := os.Stat(cfg.Session.Path)
	if err != nil || info.Size() <= cfg.Session.MinValidBytes {
		t.Errorf("session file not persisted above threshold: %v", err)
	}

	runs, err := history.RecentRuns(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != result.ID || runs[0].Given != 1 {
		t.Errorf("history = %+v", runs)
	}

	cached, _, err := reports.Latest()
	if err != nil {
		t.Fatalf("Latest report: %v", err)
	}
	if cached.ID != result.ID {
		t.Errorf("cached report id = %s; want %s", cached.ID, result.ID)
	}
}

func TestRunOnceOpenFailure(t *testing.T) {
	boom := errors.New("no chrome")
	a := New(testConfig(t), config.Credentials{}, func(context.Context) (Page, error) { return nil, boom })

	if _, err := a.RunOnce(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestRunOnceWithoutRecorders(t *testing.T) {
	var closed bool
	a := New(testConfig(t), config.Credentials{Email: "a", Password: "b"}, offlineOpener(t, &closed))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := a.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
}

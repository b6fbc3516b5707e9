// Package kudos signs in to the dashboard and gives kudos to feed entries
// that belong to other athletes.
package kudos

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ibeckermayer/kudos4me/internal/config"
	"github.com/ibeckermayer/kudos4me/internal/dom"
	"github.com/ibeckermayer/kudos4me/internal/logging"
	"github.com/ibeckermayer/kudos4me/internal/types"
)

// Authenticator establishes and persists the signed-in session
type Authenticator interface {
	SessionUsable() bool
	Login(ctx context.Context, b dom.Browser, creds config.Credentials) error
	Resume(ctx context.Context, b dom.Browser) error
	Capture(ctx context.Context, b dom.Browser) error
	Invalidate(ctx context.Context, b dom.Browser) error
}

// Runner performs one kudos pass over the dashboard feed
type Runner struct {
	page  dom.Page
	auth  Authenticator
	creds config.Credentials
	opts  Options

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a runner driving page
func New(page dom.Page, auth Authenticator, creds config.Credentials, opts Options) *Runner {
	return &Runner{
		page:  page,
		auth:  auth,
		creds: creds,
		opts:  opts,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the state of a single pass, threaded through the decision functions
type run struct {
	ownID  string
	start  time.Time
	result *types.RunResult
}

func (r *Runner) newRun() *run {
	start := r.now()
	return &run{
		start: start,
		result: &types.RunResult{
			ID:        uuid.NewString(),
			StartedAt: start,
		},
	}
}

func (r *Runner) finish(rs *run) types.RunResult {
	rs.result.FinishedAt = r.now()
	rs.result.OwnProfileID = rs.ownID
	return *rs.result
}

// Run resumes or creates a session, loads the dashboard and gives kudos once.
// The returned result is valid even when err is non-nil.
func (r *Runner) Run(ctx context.Context) (types.RunResult, error) {
	rs := r.newRun()
	logger := logging.FromContext(ctx).With(slog.String("run", rs.result.ID))
	ctx = logging.ContextWithLogger(ctx, logger)

	if err := r.establishSession(ctx, rs); err != nil {
		return r.finish(rs), err
	}

	if err := r.loadDashboard(ctx, rs); err != nil {
		return r.finish(rs), err
	}

	if err := r.sweep(ctx, rs, r.relogin); err != nil {
		return r.finish(rs), err
	}

	logger.Info("kudos given", slog.Int("count", rs.result.Given))
	return r.finish(rs), nil
}

// DryRun evaluates the currently loaded page without touching the session.
// ownID, when non-empty, overrides the id found in the navigation menu.
func (r *Runner) DryRun(ctx context.Context, ownID string) (types.RunResult, error) {
	rs := r.newRun()
	r.discoverOwnID(ctx, rs)
	if ownID != "" {
		rs.ownID = ownID
	}

	err := r.sweep(ctx, rs, nil)
	return r.finish(rs), err
}

// establishSession reuses the saved session when it looks valid and falls
// back to an email login otherwise
func (r *Runner) establishSession(ctx context.Context, rs *run) error {
	logger := logging.FromContext(ctx)

	if r.auth.SessionUsable() {
		err := r.auth.Resume(ctx, r.page)
		if err == nil {
			rs.result.SessionResumed = true
			return nil
		}
		logger.Warn("could not resume saved session, logging in", slog.String("err", err.Error()))
	}

	return r.auth.Login(ctx, r.page, r.creds)
}

// relogin throws away the saved session, signs in again and reloads the dashboard
func (r *Runner) relogin(ctx context.Context, rs *run) error {
	rs.result.Relogged = true
	if err := r.auth.Invalidate(ctx, r.page); err != nil {
		logging.FromContext(ctx).Error("failed to invalidate session", slog.String("err", err.Error()))
	}
	if err := r.auth.Login(ctx, r.page, r.creds); err != nil {
		return err
	}
	return r.loadDashboard(ctx, rs)
}

// DashboardURL returns the feed address for the configured page size
func (r *Runner) DashboardURL() (string, error) {
	base, err := url.JoinPath(r.opts.BaseURL, "dashboard")
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("num_entries", strconv.Itoa(r.opts.NumEntries))
	return base + "?" + q.Encode(), nil
}

// loadDashboard opens the feed, forces lazy content to render, looks up the
// signed-in athlete and saves the session
func (r *Runner) loadDashboard(ctx context.Context, rs *run) error {
	logger := logging.FromContext(ctx)

	dashboardURL, err := r.DashboardURL()
	if err != nil {
		return fmt.Errorf("invalid dashboard url: %w", err)
	}
	if err := r.page.Navigate(ctx, dashboardURL); err != nil {
		return err
	}

	ok, err := r.page.WaitFor(ctx, WebFeedEntry, r.opts.WaitTimeout)
	if err != nil {
		return err
	}
	if !ok {
		logger.Debug("feed entries did not appear", slog.Duration("waited", r.opts.WaitTimeout))
	}

	if err := r.lazyLoad(ctx); err != nil {
		return err
	}

	r.discoverOwnID(ctx, rs)

	// Saved after every load so a good dashboard always refreshes the session
	if err := r.auth.Capture(ctx, r.page); err != nil {
		logger.Error("failed to save session", slog.String("err", err.Error()))
	}
	logger.Info("dashboard loaded", slog.String("own_profile_id", rs.ownID))
	return nil
}

func (r *Runner) lazyLoad(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	for _, key := range []string{dom.KeyPageDown, dom.KeyPageUp} {
		for i := 0; i < r.opts.LazyLoad.Iterations; i++ {
			if err := r.page.PressKey(ctx, key); err != nil {
				logger.Debug("key press failed", slog.String("key", key), slog.String("err", err.Error()))
			}
			if err := r.sleep(ctx, r.opts.LazyLoad.Pause); err != nil {
				return err
			}
		}
	}
	return nil
}

// discoverOwnID reads the signed-in athlete id from the navigation menu. On
// failure the previous value is kept.
func (r *Runner) discoverOwnID(ctx context.Context, rs *run) {
	logger := logging.FromContext(ctx)

	links, err := r.page.Find(ctx, OwnProfileLink)
	if err != nil {
		logger.Error("can't find own profile ID", slog.String("err", err.Error()))
		return
	}
	if len(links) != 1 {
		logger.Error("can't find own profile ID", slog.Int("links", len(links)))
		return
	}

	href, ok, err := links[0].Attribute(ctx, "href")
	if err != nil || !ok {
		logger.Error("can't find own profile ID", slog.Bool("has_href", ok))
		return
	}

	id, ok := athleteID(href)
	if !ok {
		logger.Error("can't find own profile ID", slog.String("href", href))
		return
	}

	rs.ownID = id
	logger.Debug("found own profile ID", slog.String("id", id))
}

// athleteID returns the part of href following the athlete path segment
func athleteID(href string) (string, bool) {
	parts := strings.Split(href, AthletePathSegment)
	if len(parts) < 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

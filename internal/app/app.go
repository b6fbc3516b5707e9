package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ibeckermayer/kudos4me/internal/auth"
	"github.com/ibeckermayer/kudos4me/internal/browser"
	"github.com/ibeckermayer/kudos4me/internal/config"
	"github.com/ibeckermayer/kudos4me/internal/dom"
	"github.com/ibeckermayer/kudos4me/internal/kudos"
	"github.com/ibeckermayer/kudos4me/internal/logging"
	"github.com/ibeckermayer/kudos4me/internal/store"
	"github.com/ibeckermayer/kudos4me/internal/types"
)

// Page is a browsing context the app owns and closes
type Page interface {
	dom.Page
	Close() error
}

// PageOpener starts a browsing context
type PageOpener func(ctx context.Context) (Page, error)

// ChromeOpener opens a chromedp tab configured from cfg
func ChromeOpener(cfg *config.Config) PageOpener {
	return func(ctx context.Context) (Page, error) {
		settings := browser.Settings{
			Headless:  cfg.Browser.Headless,
			UserAgent: cfg.Browser.UserAgent,
			Lang:      cfg.Browser.Lang,
		}
		page, err := browser.New(ctx, settings, cfg.WaitTimeout())
		if err != nil {
			return nil, err
		}
		return page, nil
	}
}

// App holds what a single run needs. Recorders are optional.
type App struct {
	config  *config.Config
	creds   config.Credentials
	open    PageOpener
	history *store.Store
	reports *store.ReportCache
}

// Option customises an App
type Option func(*App)

// WithHistory records every run in the sqlite store
func WithHistory(s *store.Store) Option {
	return func(a *App) { a.history = s }
}

// WithReports writes a JSON report of every run
func WithReports(c *store.ReportCache) Option {
	return func(a *App) { a.reports = c }
}

// New creates a new App instance.
func New(cfg *config.Config, creds config.Credentials, open PageOpener, opts ...Option) *App {
	a := &App{
		config: cfg,
		creds:  creds,
		open:   open,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// AuthManager builds the session manager for the configured session file
func (a *App) AuthManager() *auth.Manager {
	stateStore := auth.NewStateStore(a.config.Session.Path, a.config.Session.MinValidBytes)
	return auth.NewManager(stateStore, a.config.Site.BaseURL, a.config.WaitTimeout())
}

// RunOnce opens the browser, performs one kudos pass, closes the browser and
// records the outcome.
func (a *App) RunOnce(ctx context.Context) (types.RunResult, error) {
	logger := logging.FromContext(ctx)

	page, err := a.open(ctx)
	if err != nil {
		return types.RunResult{}, fmt.Errorf("failed to open browser: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Warn("failed to close browser", slog.String("err", err.Error()))
		}
	}()

	runner := kudos.New(page, a.AuthManager(), a.creds, kudos.OptionsFromConfig(a.config))
	result, runErr := runner.Run(ctx)
	if runErr != nil {
		logger.Error("run failed", slog.String("err", runErr.Error()), slog.Int("given", result.Given))
	}

	a.record(ctx, result)
	return result, runErr
}

// record saves the run to history and the report cache. Failures are only logged.
func (a *App) record(ctx context.Context, result types.RunResult) {
	logger := logging.FromContext(ctx)

	if a.history != nil {
		if err := a.history.SaveRun(&result); err != nil {
			logger.Error("failed to record run history", slog.String("err", err.Error()))
		}
	}

	if a.reports != nil {
		if path, err := a.reports.Save(result); err != nil {
			logger.Error("failed to cache run report", slog.String("err", err.Error()))
		} else {
			logger.Debug("cached run report", slog.String("path", path))
		}
	}
}

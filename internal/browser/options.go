// Package browser provides the chromedp-backed page used for live runs.
package browser

import "github.com/chromedp/chromedp"

// DefaultUserAgent is a realistic desktop Chrome user agent
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"

// Settings selects how the browser process is launched
type Settings struct {
	Headless bool

	// UserAgent overrides DefaultUserAgent when set
	UserAgent string

	// Lang is the UI language requested from the site, e.g. "en-US"
	Lang string
}

func (s Settings) userAgent() string {
	if s.UserAgent != "" {
		return s.UserAgent
	}
	return DefaultUserAgent
}

// Options returns chromedp allocator options for driving the dashboard. The
// browser must not announce itself as automated, and it must keep firing
// timers and scroll handlers while headless so the feed lazy-loads.
func Options(s Settings) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(s.userAgent()),

		// The feed collapses entry headers on narrow viewports
		chromedp.WindowSize(1440, 1200),

		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),

		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),

		// Strava's notifications prompt would otherwise cover the feed
		chromedp.Flag("disable-notifications", true),
	)

	if s.Lang != "" {
		opts = append(opts, chromedp.Flag("lang", s.Lang))
	}

	if s.Headless {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}

	return opts
}

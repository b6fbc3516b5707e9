package kudos

import (
	"time"

	"github.com/ibeckermayer/kudos4me/internal/config"
)

// RequiredUnfilledControls is how many unfilled kudos buttons a target must
// contain before it is clicked. Zero means kudos were already given; more
// than one is ambiguous and skipped.
const RequiredUnfilledControls = 1

// LazyLoadPolicy is the fixed PageDown/PageUp sweep that makes the dashboard
// render lazily loaded entries. It runs after the feed selector appears.
type LazyLoadPolicy struct {
	Iterations int
	Pause      time.Duration
}

// DefaultLazyLoad presses each key five times, half a second apart
var DefaultLazyLoad = LazyLoadPolicy{Iterations: 5, Pause: 500 * time.Millisecond}

// Options tune a Runner
type Options struct {
	BaseURL        string
	NumEntries     int
	MaxRunDuration time.Duration
	ClickPause     time.Duration
	WaitTimeout    time.Duration
	LazyLoad       LazyLoadPolicy
}

// DefaultOptions mirrors config.Default
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// OptionsFromConfig maps the on-disk configuration to runner options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL:        cfg.Site.BaseURL,
		NumEntries:     cfg.Run.NumEntries,
		MaxRunDuration: cfg.MaxRunDuration(),
		ClickPause:     cfg.ClickPause(),
		WaitTimeout:    cfg.WaitTimeout(),
		LazyLoad: LazyLoadPolicy{
			Iterations: cfg.LazyLoad.Iterations,
			Pause:      cfg.LazyLoadPause(),
		},
	}
}

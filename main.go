package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ibeckermayer/kudos4me/internal/app"
	"github.com/ibeckermayer/kudos4me/internal/config"
	"github.com/ibeckermayer/kudos4me/internal/logging"
	"github.com/ibeckermayer/kudos4me/internal/store"
)

func main() {
	opts, err := parseFlags(os.Args[0], os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	os.Exit(run(opts.debug, opts.configLoc))
}

type cliOptions struct {
	debug     bool
	configLoc string
}

func parseFlags(name string, args []string) (cliOptions, error) {
	var opts cliOptions

	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.BoolVar(&opts.debug, "debug", false, "Print debug logs.")
	flags.StringVar(&opts.configLoc, "config", "", "Location of the config file. Defaults to the user config directory.")
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "Usage: %s [flags]\n\nFlags:\n", name)
		flags.PrintDefaults()
		fmt.Fprintf(flags.Output(), "\n%s", config.CredentialsUsage())
	}

	err := flags.Parse(args)
	return opts, err
}

// run performs one pass and returns the process exit code
func run(debug bool, configLoc string) int {
	logger := logging.Init(debug)

	cfg, err := loadConfig(configLoc)
	if err != nil {
		logger.Error("could not load config", slog.String("path", configLoc), slog.String("err", err.Error()))
		return 1
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("err", err.Error()))
		return 1
	}

	creds, err := config.LoadCredentials()
	if err != nil {
		logger.Error(err.Error())
		return 1
	}

	var opts []app.Option
	if cfg.History.Enabled {
		if history := openHistory(cfg); history != nil {
			defer history.Close()
			opts = append(opts, app.WithHistory(history))
		}
	}
	if reports, err := store.DefaultReportCache(); err != nil {
		slog.Warn("run reports disabled", slog.String("err", err.Error()))
	} else {
		logger.Debug("writing run reports", slog.String("dir", reports.Dir()))
		opts = append(opts, app.WithReports(reports))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithLogger(ctx, logger)

	logger.Info("kudos4me starting...")

	a := app.New(cfg, creds, app.ChromeOpener(cfg), opts...)
	result, err := a.RunOnce(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("interrupted", slog.Int("given", result.Given))
		}
		return 1
	}

	logger.Info("done",
		slog.Int("given", result.Given),
		slog.Int("entries", result.EntriesFound),
		slog.Duration("took", result.Duration()))
	return 0
}

// loadConfig reads the config file, creating a default one on first run
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}

	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run - create default config
			cfg = config.Default()
			if err := cfg.Save(); err != nil {
				slog.Warn("could not save default config", slog.String("err", err.Error()))
			} else {
				path, _ := config.ConfigPath()
				slog.Info("created default config", slog.String("path", path))
			}
		} else {
			slog.Warn("could not load config, using defaults", slog.String("err", err.Error()))
			cfg = config.Default()
		}
	}
	return cfg, nil
}

func openHistory(cfg *config.Config) *store.Store {
	path, err := cfg.HistoryPath()
	if err != nil {
		slog.Warn("run history disabled", slog.String("err", err.Error()))
		return nil
	}
	history, err := store.New(path)
	if err != nil {
		slog.Warn("run history disabled", slog.String("path", path), slog.String("err", err.Error()))
		return nil
	}
	return history
}

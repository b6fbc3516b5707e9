// Command k4m is a dev CLI for kudos4me maintenance and debugging tasks.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/browser"

	"github.com/ibeckermayer/kudos4me/internal/auth"
	browseropts "github.com/ibeckermayer/kudos4me/internal/browser"
	"github.com/ibeckermayer/kudos4me/internal/config"
	"github.com/ibeckermayer/kudos4me/internal/htmlpage"
	"github.com/ibeckermayer/kudos4me/internal/kudos"
	"github.com/ibeckermayer/kudos4me/internal/logging"
	"github.com/ibeckermayer/kudos4me/internal/store"
	"github.com/ibeckermayer/kudos4me/internal/types"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "bot-test":
		runBotTest()
	case "open":
		if len(os.Args) < 3 {
			fmt.Println("Usage: k4m open <config|cache|session>")
			os.Exit(1)
		}
		runOpen(os.Args[2])
	case "history":
		limit := 10
		if len(os.Args) > 2 {
			n, err := strconv.Atoi(os.Args[2])
			if err != nil || n <= 0 {
				fmt.Printf("Invalid run count: %s\n", os.Args[2])
				os.Exit(1)
			}
			limit = n
		}
		runHistory(limit)
	case "entries":
		if len(os.Args) < 3 {
			fmt.Println("Usage: k4m entries <run-id>")
			os.Exit(1)
		}
		runEntries(os.Args[2])
	case "report":
		runReport()
	case "reset-session":
		runResetSession()
	case "dry-run":
		if len(os.Args) < 3 {
			fmt.Println("Usage: k4m dry-run <saved-dashboard.html> [own-athlete-id]")
			os.Exit(1)
		}
		ownID := ""
		if len(os.Args) > 3 {
			ownID = os.Args[3]
		}
		runDryRun(os.Args[2], ownID)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: k4m <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  bot-test                 Open bot.sannysoft.com to audit browser fingerprint")
	fmt.Println("  open config              Open config file in default editor")
	fmt.Println("  open cache               Open cache directory in file explorer")
	fmt.Println("  open session             Open the saved session file")
	fmt.Println("  history [n]              Show the last n runs (default 10)")
	fmt.Println("  entries <run-id>         Show per-entry decisions of a recorded run")
	fmt.Println("  report                   Summarize the latest cached run report")
	fmt.Println("  reset-session            Delete the saved session so the next run logs in")
	fmt.Println("  dry-run <file> [own-id]  Show which entries of a saved dashboard would get kudos")
}

func runBotTest() {
	log.Println("Opening bot.sannysoft.com with stealth browser options...")

	cfg := loadConfig()
	// non-headless so you can see it
	opts := browseropts.Options(browseropts.Settings{UserAgent: cfg.Browser.UserAgent, Lang: cfg.Browser.Lang})

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.Navigate("https://bot.sannysoft.com")); err != nil {
		log.Fatalf("Failed to navigate: %v", err)
	}

	fmt.Println("Press Enter to end program...")
	fmt.Scanln()
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		return config.Default()
	}
	return cfg
}

func runOpen(target string) {
	var path string
	var err error

	switch target {
	case "config":
		path, err = config.ConfigPath()
	case "cache":
		path, err = config.CacheDir()
	case "session":
		cfg := loadConfig()
		session := auth.NewStateStore(cfg.Session.Path, cfg.Session.MinValidBytes)
		if !session.Usable() {
			fmt.Println("Session file is missing or too small to resume; the next run will log in.")
		}
		path = session.Path()
	default:
		fmt.Printf("Unknown target: %s\n", target)
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Failed to get path: %v", err)
	}

	if err := browser.OpenFile(path); err != nil {
		log.Fatalf("Failed to open: %v", err)
	}
}

func runHistory(limit int) {
	history := openHistory()
	defer history.Close()

	runs, err := history.RecentRuns(limit)
	if err != nil {
		log.Fatalf("Failed to read history: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return
	}

	week, err := history.TotalGiven(time.Now().AddDate(0, 0, -7))
	if err != nil {
		log.Fatalf("Failed to sum history: %v", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Run", "Started", "Took", "Entries", "Given", "Session", "Notes")
	for _, r := range runs {
		table.Append([]string{
			r.ID,
			humanize.Time(r.StartedAt),
			r.Duration().Round(time.Second).String(),
			fmt.Sprintf("%d/%d", r.EntriesProcessed, r.EntriesFound),
			strconv.Itoa(r.Given),
			sessionLabel(r),
			notes(r),
		})
	}
	table.Footer("Last 7 days", "", "", "", humanize.Comma(int64(week)), "", "")
	if err := table.Render(); err != nil {
		log.Fatalf("Failed to render table: %v", err)
	}
}

func openHistory() *store.Store {
	path, err := loadConfig().HistoryPath()
	if err != nil {
		log.Fatalf("Failed to get history path: %v", err)
	}

	history, err := store.New(path)
	if err != nil {
		log.Fatalf("Failed to open history: %v", err)
	}
	return history
}

func runEntries(runID string) {
	history := openHistory()
	defer history.Close()

	entries, err := history.RunEntries(runID)
	if err != nil {
		log.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) == 0 {
		fmt.Printf("No entries recorded for run %s.\n", runID)
		return
	}
	printEntries(entries)
}

func runReport() {
	reports, err := store.DefaultReportCache()
	if err != nil {
		log.Fatalf("Failed to get report cache: %v", err)
	}

	result, path, err := reports.Latest()
	if err != nil {
		log.Fatalf("Failed to load latest report: %v", err)
	}

	fmt.Printf("Report:   %s\n", path)
	fmt.Printf("Run:      %s (%s, took %s)\n", result.ID, humanize.Time(result.StartedAt), result.Duration().Round(time.Second))
	fmt.Printf("Session:  %s\n", sessionLabel(result))
	fmt.Printf("Entries:  %d/%d processed\n", result.EntriesProcessed, result.EntriesFound)
	fmt.Printf("Given:    %d\n", result.Given)
	if n := notes(result); n != "" {
		fmt.Printf("Notes:    %s\n", n)
	}
	if len(result.Entries) > 0 {
		fmt.Println()
		printEntries(result.Entries)
	}
}

func runResetSession() {
	cfg := loadConfig()
	session := auth.NewStateStore(cfg.Session.Path, cfg.Session.MinValidBytes)
	if err := session.Clear(); err != nil {
		log.Fatalf("Failed to delete session: %v", err)
	}
	fmt.Printf("Removed %s\n", session.Path())
}

func printEntries(entries []types.EntryReport) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Entry", "Kind", "Owners", "Given")
	total := 0
	for _, e := range entries {
		table.Append([]string{strconv.Itoa(e.Index), string(e.Kind), owners(e), strconv.Itoa(e.Given)})
		total += e.Given
	}
	table.Footer("", "", "Total", strconv.Itoa(total))
	if err := table.Render(); err != nil {
		log.Fatalf("Failed to render table: %v", err)
	}
}

func owners(e types.EntryReport) string {
	var out []string
	for _, p := range e.Participants {
		owner := p.OwnerID
		if p.IsSelf {
			owner += " (me)"
		}
		out = append(out, owner)
	}
	return strings.Join(out, ", ")
}

func sessionLabel(r types.RunResult) string {
	if r.SessionResumed {
		return "resumed"
	}
	return "login"
}

func notes(r types.RunResult) string {
	var n []string
	if r.Relogged {
		n = append(n, "relogged")
	}
	if r.BudgetExhausted {
		n = append(n, "time budget hit")
	}
	return strings.Join(n, ", ")
}

func runDryRun(path, ownID string) {
	logging.Init(false)

	page, err := htmlpage.Open(path)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", path, err)
	}

	opts := kudos.DefaultOptions()
	opts.ClickPause = 0
	runner := kudos.New(page, nil, config.Credentials{}, opts)

	result, err := runner.DryRun(context.Background(), ownID)
	if err != nil {
		log.Fatalf("Dry run failed: %v", err)
	}

	fmt.Printf("Own profile id: %q\n", result.OwnProfileID)
	printEntries(result.Entries)
}

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/halverson/ccspend/cli/internal/output"
	"github.com/halverson/ccspend/internal/aggregator"
	"github.com/halverson/ccspend/internal/logscan"
)

const version = "0.1.0"

func main() {
	// Detect subcommand first
	command := "overview"
	args := os.Args[1:]

	if len(args) > 0 {
		switch args[0] {
		case "overview", "daily", "sessions", "projects", "events":
			command = args[0]
			args = args[1:]
		}
	}

	fs := flag.NewFlagSet("ccspend", flag.ExitOnError)

	var (
		dir       string
		since     string
		until     string
		modelName string
		provider  string
		sessionID string
		limit     int
		page      int
		jsonOut   bool
		compact   bool
		showHelp  bool
		showVer   bool
	)

	fs.StringVar(&dir, "dir", "", "Claude data directory (default ~/.claude)")
	fs.StringVar(&since, "since", "", "Start date filter (YYYY-MM-DD)")
	fs.StringVar(&until, "until", "", "End date filter, inclusive (YYYY-MM-DD)")
	fs.StringVar(&modelName, "model", "", "Filter events by model name")
	fs.StringVar(&provider, "provider", "", "Filter events by provider")
	fs.StringVar(&sessionID, "session", "", "Filter events by session ID")
	fs.IntVar(&limit, "limit", 0, "Row limit (sessions, events)")
	fs.IntVar(&page, "page", 1, "Page number (events)")
	fs.BoolVar(&jsonOut, "json", false, "Output as JSON")
	fs.BoolVar(&compact, "compact", false, "Force compact table output")
	fs.BoolVar(&compact, "c", false, "Force compact table output")
	fs.BoolVar(&showHelp, "help", false, "Show help")
	fs.BoolVar(&showHelp, "h", false, "Show help")
	fs.BoolVar(&showVer, "version", false, "Show version")
	fs.BoolVar(&showVer, "v", false, "Show version")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `ccspend - Claude Code spend report

Usage: ccspend [command] [options]

Commands:
  overview  Show totals and per-model breakdown (default)
  daily     Show per-day per-model cost series
  sessions  Show the most expensive sessions
  projects  Show per-project spend
  events    List individual billable requests

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  ccspend                              Show overview
  ccspend daily --since 2026-08-01
  ccspend sessions --limit 10 --json
  ccspend events --model claude-opus-4-6 --page 2
`)
	}

	fs.Parse(args)

	if showVer {
		fmt.Printf("ccspend version %s\n", version)
		return
	}
	if showHelp {
		fs.Usage()
		return
	}

	dr, err := parseRange(since, until)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot determine home directory: %v\n", err)
			os.Exit(1)
		}
		dir = filepath.Join(home, ".claude")
	}

	// Warnings only; the scanner logs per-file problems
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(zerolog.WarnLevel)

	events := logscan.NewScanner(dir, logger).Load()
	if len(events) == 0 {
		fmt.Printf("No usage data found in %s\n", filepath.Join(dir, "projects"))
		return
	}

	if len(aggregator.FilterByDate(events, dr)) == 0 {
		fmt.Println("No usage data found for the specified date range.")
		return
	}

	opts := output.TableOptions{ForceCompact: compact}

	switch command {
	case "overview":
		ov := aggregator.Overview(events, dr)
		if jsonOut {
			output.PrintJSON(ov)
		} else {
			output.PrintOverview(ov, opts)
		}

	case "daily":
		points := aggregator.Timeseries(events, dr)
		if jsonOut {
			output.PrintJSON(points)
		} else {
			output.PrintTimeseries(points, opts)
		}

	case "sessions":
		sessions := aggregator.TopSessions(events, dr, limit)
		if jsonOut {
			output.PrintJSON(sessions)
		} else {
			output.PrintSessions(sessions, opts)
		}

	case "projects":
		projects := aggregator.TopProjects(events, dr)
		if jsonOut {
			output.PrintJSON(projects)
		} else {
			output.PrintProjects(projects, opts)
		}

	case "events":
		pageOut := aggregator.Events(events, aggregator.EventFilter{
			DateRange: dr,
			Model:     modelName,
			Provider:  provider,
			SessionID: sessionID,
			Page:      page,
			Limit:     limit,
		})
		if jsonOut {
			output.PrintJSON(pageOut)
		} else {
			output.PrintEvents(pageOut, opts)
		}
	}
}

// parseRange validates --since/--until and builds the date range
func parseRange(since, until string) (aggregator.DateRange, error) {
	var dr aggregator.DateRange
	if since != "" {
		if _, err := time.Parse("2006-01-02", since); err != nil {
			return dr, fmt.Errorf("invalid --since date %q, use YYYY-MM-DD", since)
		}
		dr.From = since
	}
	if until != "" {
		if _, err := time.Parse("2006-01-02", until); err != nil {
			return dr, fmt.Errorf("invalid --until date %q, use YYYY-MM-DD", until)
		}
		dr.To = until
	}
	return dr, nil
}

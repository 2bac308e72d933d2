package output

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/halverson/ccspend/internal/model"
)

const (
	compactThreshold = 100 // Terminal width below which compact mode kicks in
	defaultWidth     = 120
)

// TableOptions controls table display behavior
type TableOptions struct {
	ForceCompact bool
}

// shouldUseCompact determines if compact mode should be used
func shouldUseCompact(opts TableOptions) bool {
	if opts.ForceCompact {
		return true
	}
	return getTerminalWidth() < compactThreshold
}

// FormatNumber formats a number with thousand separators
func FormatNumber(n int64) string {
	if n == 0 {
		return "0"
	}

	str := fmt.Sprintf("%d", n)
	negative := n < 0
	if negative {
		str = str[1:]
	}

	result := ""
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}

	if negative {
		return "-" + result
	}
	return result
}

// FormatCost formats a cost value as currency
func FormatCost(cost float64) string {
	return fmt.Sprintf("$%.2f", cost)
}

var (
	datedModelRe   = regexp.MustCompile(`^claude-(\w+)-([\d-]+)-(\d{8})$`)
	undatedModelRe = regexp.MustCompile(`^claude-(\w+)-([\d-]+)$`)
)

// shortenModelName converts full model names to short form
// claude-sonnet-4-5-20250929 -> sonnet-4-5
// claude-opus-4-20250514 -> opus-4
func shortenModelName(name string) string {
	if matches := datedModelRe.FindStringSubmatch(name); matches != nil {
		return fmt.Sprintf("%s-%s", matches[1], matches[2])
	}
	if matches := undatedModelRe.FindStringSubmatch(name); matches != nil {
		return fmt.Sprintf("%s-%s", matches[1], matches[2])
	}
	return name
}

// shortenSessionID truncates session UUID to first 8 chars
func shortenSessionID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// shortenProjectPath keeps the last two path segments
func shortenProjectPath(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) > 2 {
		return ".../" + strings.Join(parts[len(parts)-2:], "/")
	}
	return path
}

// totalsRow renders one full-width row of token totals
func totalsRow(keyWidth int, key string, t model.TokenTotals) string {
	return fmt.Sprintf("%-*s  %12s  %12s  %14s  %14s  %10s",
		keyWidth, key,
		FormatNumber(t.InputTokens),
		FormatNumber(t.OutputTokens),
		FormatNumber(t.CacheCreationTokens),
		FormatNumber(t.CacheReadTokens),
		FormatCost(t.CostUSD))
}

// compactTotalsRow renders one compact row of token totals
func compactTotalsRow(keyWidth int, key string, t model.TokenTotals) string {
	return fmt.Sprintf("%-*s  %12s  %12s  %10s",
		keyWidth, key,
		FormatNumber(t.InputTokens),
		FormatNumber(t.OutputTokens),
		FormatCost(t.CostUSD))
}

// printTotalsTable prints a keyed table of token totals with a Total row
func printTotalsTable(title string, keys []string, totals []model.TokenTotals, grand model.TokenTotals, opts TableOptions) {
	compact := shouldUseCompact(opts)

	keyWidth := len(title)
	for _, key := range keys {
		if len(key) > keyWidth {
			keyWidth = len(key)
		}
	}
	if keyWidth < 10 {
		keyWidth = 10
	}
	if compact && keyWidth > 12 {
		keyWidth = 12
	}

	fmt.Println()

	if compact {
		rule := strings.Repeat("─", keyWidth+2+12+2+12+2+10)
		fmt.Printf("%-*s  %12s  %12s  %10s\n", keyWidth, title, "Input", "Output", "Cost")
		fmt.Println(rule)
		for i, key := range keys {
			if len(key) > keyWidth {
				key = key[:keyWidth]
			}
			fmt.Println(compactTotalsRow(keyWidth, key, totals[i]))
		}
		if len(keys) > 1 {
			fmt.Println(rule)
			fmt.Println(compactTotalsRow(keyWidth, "Total", grand))
		}
		fmt.Println()
		fmt.Println("(Compact mode - expand terminal for full view)")
		return
	}

	rule := strings.Repeat("─", keyWidth+2+12+2+12+2+14+2+14+2+10)
	fmt.Printf("%-*s  %12s  %12s  %14s  %14s  %10s\n",
		keyWidth, title, "Input", "Output", "Cache Create", "Cache Read", "Cost")
	fmt.Println(rule)
	for i, key := range keys {
		fmt.Println(totalsRow(keyWidth, key, totals[i]))
	}
	if len(keys) > 1 {
		fmt.Println(rule)
		fmt.Println(totalsRow(keyWidth, "Total", grand))
	}
	fmt.Println()
}

// PrintOverview prints the per-model breakdown with grand totals
func PrintOverview(ov model.Overview, opts TableOptions) {
	if len(ov.ByModel) == 0 {
		fmt.Println("No usage data found.")
		return
	}

	keys := make([]string, len(ov.ByModel))
	totals := make([]model.TokenTotals, len(ov.ByModel))
	for i, row := range ov.ByModel {
		keys[i] = shortenModelName(row.Model)
		totals[i] = row.TokenTotals
	}
	printTotalsTable("Model", keys, totals, ov.Totals, opts)
}

// PrintTimeseries prints the per-day per-model cost series
func PrintTimeseries(points []model.TimeseriesPoint, opts TableOptions) {
	if len(points) == 0 {
		fmt.Println("No usage data found.")
		return
	}

	modelWidth := len("Model")
	for _, p := range points {
		if w := len(shortenModelName(p.Model)); w > modelWidth {
			modelWidth = w
		}
	}

	rule := strings.Repeat("─", 10+2+modelWidth+2+10+2+10)
	fmt.Println()
	fmt.Printf("%-10s  %-*s  %10s  %10s\n", "Date", modelWidth, "Model", "Requests", "Cost")
	fmt.Println(rule)

	var totalCost float64
	var totalReqs int64
	for _, p := range points {
		fmt.Printf("%-10s  %-*s  %10s  %10s\n",
			p.Date, modelWidth, shortenModelName(p.Model),
			FormatNumber(p.Requests), FormatCost(p.CostUSD))
		totalCost += p.CostUSD
		totalReqs += p.Requests
	}

	if len(points) > 1 {
		fmt.Println(rule)
		fmt.Printf("%-10s  %-*s  %10s  %10s\n",
			"Total", modelWidth, "", FormatNumber(totalReqs), FormatCost(totalCost))
	}
	fmt.Println()
}

// PrintSessions prints the top-session rollup
func PrintSessions(sessions []model.SessionSummary, opts TableOptions) {
	if len(sessions) == 0 {
		fmt.Println("No usage data found.")
		return
	}

	keys := make([]string, len(sessions))
	totals := make([]model.TokenTotals, len(sessions))
	var grand model.TokenTotals
	for i, s := range sessions {
		keys[i] = shortenSessionID(s.SessionID)
		totals[i] = s.TokenTotals
		grand.Requests += s.Requests
		grand.InputTokens += s.InputTokens
		grand.OutputTokens += s.OutputTokens
		grand.CacheCreationTokens += s.CacheCreationTokens
		grand.CacheReadTokens += s.CacheReadTokens
		grand.CostUSD += s.CostUSD
	}
	printTotalsTable("Session", keys, totals, grand, opts)
}

// PrintProjects prints the per-project rollup
func PrintProjects(projects []model.ProjectSummary, opts TableOptions) {
	if len(projects) == 0 {
		fmt.Println("No usage data found.")
		return
	}

	keys := make([]string, len(projects))
	totals := make([]model.TokenTotals, len(projects))
	var grand model.TokenTotals
	for i, p := range projects {
		keys[i] = shortenProjectPath(p.ProjectPath)
		totals[i] = p.TokenTotals
		grand.Requests += p.Requests
		grand.InputTokens += p.InputTokens
		grand.OutputTokens += p.OutputTokens
		grand.CacheCreationTokens += p.CacheCreationTokens
		grand.CacheReadTokens += p.CacheReadTokens
		grand.CostUSD += p.CostUSD
	}
	printTotalsTable("Project", keys, totals, grand, opts)
}

// PrintEvents prints one page of the event listing
func PrintEvents(page model.EventPage, opts TableOptions) {
	if len(page.Rows) == 0 {
		fmt.Println("No usage data found.")
		return
	}

	modelWidth := len("Model")
	for _, e := range page.Rows {
		if w := len(shortenModelName(e.Model)); w > modelWidth {
			modelWidth = w
		}
	}

	fmt.Println()
	fmt.Printf("%-20s  %-8s  %-*s  %12s  %12s  %10s\n",
		"Time", "Session", modelWidth, "Model", "Input", "Output", "Cost")
	fmt.Println(strings.Repeat("─", 20+2+8+2+modelWidth+2+12+2+12+2+10))

	for _, e := range page.Rows {
		ts := e.Timestamp
		if len(ts) > 20 {
			ts = ts[:20]
		}
		fmt.Printf("%-20s  %-8s  %-*s  %12s  %12s  %10s\n",
			ts, shortenSessionID(e.SessionID), modelWidth, shortenModelName(e.Model),
			FormatNumber(e.InputTokens), FormatNumber(e.OutputTokens), FormatCost(e.CostUSD))
	}

	fmt.Println()
	fmt.Printf("Page %d of %d (%d events)\n", page.Page, page.Pages, page.Total)
}

// PrintJSON prints any result as indented JSON
func PrintJSON(v interface{}) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(v)
}

// Package aggregator provides the read-only query functions over a
// loaded usage event collection. Every query is a pure function: input
// slices are never mutated, so they can run concurrently over the same
// snapshot.
package aggregator

import (
	"sort"
	"strings"

	"github.com/halverson/ccspend/internal/model"
)

// DefaultSessionLimit caps top-session results when no limit is given.
const DefaultSessionLimit = 20

// DateRange is an optional inclusive day range. From and To are
// YYYY-MM-DD strings compared lexically against event timestamps.
type DateRange struct {
	From string
	To   string
}

// IsZero reports whether the range places no bounds.
func (r DateRange) IsZero() bool {
	return r.From == "" && r.To == ""
}

// FilterByDate keeps events within the range. From is inclusive at start
// of day; To is expanded to end of day before the inclusive comparison.
// An unbounded range returns the input as-is.
func FilterByDate(events []model.UsageEvent, r DateRange) []model.UsageEvent {
	if r.IsZero() {
		return events
	}

	upper := ""
	if r.To != "" {
		upper = r.To + "T23:59:59"
	}

	var filtered []model.UsageEvent
	for _, e := range events {
		if r.From != "" && e.Timestamp < r.From {
			continue
		}
		if upper != "" && e.Timestamp > upper {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

// Overview returns grand totals plus a per-model breakdown sorted
// descending by cost.
func Overview(events []model.UsageEvent, r DateRange) model.Overview {
	filtered := FilterByDate(events, r)

	overview := model.Overview{ByModel: []model.ModelBreakdownRow{}}
	byModel := make(map[string]*model.ModelBreakdownRow)

	for _, e := range filtered {
		overview.Totals.Add(e)

		row, ok := byModel[e.Model]
		if !ok {
			row = &model.ModelBreakdownRow{Model: e.Model, Provider: e.Provider}
			byModel[e.Model] = row
		}
		row.Add(e)
	}

	for _, row := range byModel {
		overview.ByModel = append(overview.ByModel, *row)
	}
	sort.Slice(overview.ByModel, func(i, j int) bool {
		return overview.ByModel[i].CostUSD > overview.ByModel[j].CostUSD
	})

	return overview
}

// Timeseries groups the filtered events by (calendar day, model) and
// returns the points sorted ascending by day.
func Timeseries(events []model.UsageEvent, r DateRange) []model.TimeseriesPoint {
	filtered := FilterByDate(events, r)

	type key struct{ date, model string }
	grouped := make(map[key]*model.TimeseriesPoint)

	for _, e := range filtered {
		if len(e.Timestamp) < 10 {
			continue
		}
		k := key{date: e.Timestamp[:10], model: e.Model}
		point, ok := grouped[k]
		if !ok {
			point = &model.TimeseriesPoint{Date: k.date, Model: e.Model, Provider: e.Provider}
			grouped[k] = point
		}
		point.CostUSD += e.CostUSD
		point.Requests++
	}

	points := make([]model.TimeseriesPoint, 0, len(grouped))
	for _, point := range grouped {
		points = append(points, *point)
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Date != points[j].Date {
			return points[i].Date < points[j].Date
		}
		return points[i].Model < points[j].Model
	})

	return points
}

// TopSessions rolls up the filtered events by session id, sorted
// descending by cost and truncated to limit (default 20). Events without
// a session id group under "unknown".
func TopSessions(events []model.UsageEvent, r DateRange, limit int) []model.SessionSummary {
	if limit <= 0 {
		limit = DefaultSessionLimit
	}
	filtered := FilterByDate(events, r)

	grouped := make(map[string]*model.SessionSummary)
	modelsBySession := make(map[string]map[string]bool)

	for _, e := range filtered {
		key := e.SessionID
		if key == "" {
			key = "unknown"
		}

		s, ok := grouped[key]
		if !ok {
			s = &model.SessionSummary{SessionID: key, FirstSeen: e.Timestamp, LastSeen: e.Timestamp}
			grouped[key] = s
			modelsBySession[key] = make(map[string]bool)
		}
		s.Add(e)
		if e.Timestamp < s.FirstSeen {
			s.FirstSeen = e.Timestamp
		}
		if e.Timestamp > s.LastSeen {
			s.LastSeen = e.Timestamp
		}
		modelsBySession[key][e.Model] = true
	}

	sessions := make([]model.SessionSummary, 0, len(grouped))
	for key, s := range grouped {
		names := make([]string, 0, len(modelsBySession[key]))
		for m := range modelsBySession[key] {
			names = append(names, m)
		}
		sort.Strings(names)
		s.Models = strings.Join(names, ",")
		sessions = append(sessions, *s)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CostUSD > sessions[j].CostUSD
	})
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions
}

// TopProjects rolls up the filtered events by project path, counting
// distinct sessions per project, sorted descending by cost. Events
// without a project path group under "Unknown".
func TopProjects(events []model.UsageEvent, r DateRange) []model.ProjectSummary {
	filtered := FilterByDate(events, r)

	grouped := make(map[string]*model.ProjectSummary)
	sessionsByProject := make(map[string]map[string]bool)

	for _, e := range filtered {
		key := e.ProjectPath
		if key == "" {
			key = "Unknown"
		}

		p, ok := grouped[key]
		if !ok {
			p = &model.ProjectSummary{ProjectPath: key, FirstSeen: e.Timestamp, LastSeen: e.Timestamp}
			grouped[key] = p
			sessionsByProject[key] = make(map[string]bool)
		}
		p.Add(e)
		if e.Timestamp < p.FirstSeen {
			p.FirstSeen = e.Timestamp
		}
		if e.Timestamp > p.LastSeen {
			p.LastSeen = e.Timestamp
		}
		if e.SessionID != "" {
			sessionsByProject[key][e.SessionID] = true
		}
	}

	projects := make([]model.ProjectSummary, 0, len(grouped))
	for key, p := range grouped {
		p.Sessions = int64(len(sessionsByProject[key]))
		projects = append(projects, *p)
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CostUSD > projects[j].CostUSD
	})
	return projects
}

// EventFilter selects and pages the raw event listing.
type EventFilter struct {
	DateRange
	Model     string
	Provider  string
	SessionID string
	Sort      string // "cost" or "" (descending occurred_at)
	Page      int    // 1-indexed
	Limit     int
}

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// Events applies the filter's equality and date constraints, sorts
// descending by cost or occurred_at, and returns one page plus totals.
func Events(events []model.UsageEvent, f EventFilter) model.EventPage {
	filtered := FilterByDate(events, f.DateRange)

	rows := make([]model.UsageEvent, 0, len(filtered))
	for _, e := range filtered {
		if f.Model != "" && e.Model != f.Model {
			continue
		}
		if f.Provider != "" && string(e.Provider) != f.Provider {
			continue
		}
		if f.SessionID != "" && e.SessionID != f.SessionID {
			continue
		}
		rows = append(rows, e)
	}

	// The collection is stored ascending; stable reverse keeps
	// same-timestamp events deterministic.
	if f.Sort == "cost" {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].CostUSD > rows[j].CostUSD
		})
	} else {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Timestamp > rows[j].Timestamp
		})
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}
	page := f.Page
	if page < 1 {
		page = 1
	}

	total := len(rows)
	pages := (total + limit - 1) / limit

	offset := (page - 1) * limit
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return model.EventPage{
		Rows:  rows[offset:end],
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: pages,
	}
}

// DistinctModels returns the sorted set of model names observed.
func DistinctModels(events []model.UsageEvent) []string {
	set := make(map[string]bool)
	for _, e := range events {
		set[e.Model] = true
	}

	names := make([]string, 0, len(set))
	for m := range set {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}

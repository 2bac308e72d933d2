package model

// Provider identifies which API vendor produced a usage event.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderUnknown   Provider = "unknown"
)

// Source distinguishes primary interactive requests from sidechain
// (subagent) requests.
type Source string

const (
	SourcePrimary  Source = "primary"
	SourceSubagent Source = "subagent"
)

// UsageEvent is one billable request after dedup and cost attribution.
// Timestamp is an RFC3339 string so that lexical order equals
// chronological order; the whole pipeline relies on that.
type UsageEvent struct {
	Provider            Provider `json:"provider"`
	Model               string   `json:"model"`
	SessionID           string   `json:"session_id,omitempty"`
	ProjectPath         string   `json:"project_path,omitempty"`
	RequestID           string   `json:"request_id"`
	Timestamp           string   `json:"occurred_at"`
	InputTokens         int64    `json:"input_tokens"`
	OutputTokens        int64    `json:"output_tokens"`
	CacheCreationTokens int64    `json:"cache_creation_tokens"`
	CacheReadTokens     int64    `json:"cache_read_tokens"`
	CostUSD             float64  `json:"cost_usd"`
	Source              Source   `json:"source"`
	PromptText          string   `json:"prompt_text,omitempty"`
}

// TokenTotals holds summed token counts and cost.
type TokenTotals struct {
	Requests            int64   `json:"requests"`
	InputTokens         int64   `json:"input_tokens"`
	OutputTokens        int64   `json:"output_tokens"`
	CacheCreationTokens int64   `json:"cache_creation_tokens"`
	CacheReadTokens     int64   `json:"cache_read_tokens"`
	CostUSD             float64 `json:"cost_usd"`
}

// Add accumulates one event into the totals.
func (t *TokenTotals) Add(e UsageEvent) {
	t.Requests++
	t.InputTokens += e.InputTokens
	t.OutputTokens += e.OutputTokens
	t.CacheCreationTokens += e.CacheCreationTokens
	t.CacheReadTokens += e.CacheReadTokens
	t.CostUSD += e.CostUSD
}

// ModelBreakdownRow is one model's share of an overview.
type ModelBreakdownRow struct {
	Model    string   `json:"model"`
	Provider Provider `json:"provider"`
	TokenTotals
}

// Overview is the top-level aggregate: grand totals plus the per-model
// breakdown sorted descending by cost.
type Overview struct {
	Totals  TokenTotals         `json:"totals"`
	ByModel []ModelBreakdownRow `json:"by_model"`
}

// TimeseriesPoint is one (day, model) group of the daily series.
type TimeseriesPoint struct {
	Date     string   `json:"date"`
	Model    string   `json:"model"`
	Provider Provider `json:"provider"`
	CostUSD  float64  `json:"cost_usd"`
	Requests int64    `json:"requests"`
}

// SessionSummary is one session's rollup.
type SessionSummary struct {
	SessionID string `json:"session_id"`
	TokenTotals
	FirstSeen string `json:"first_seen"`
	LastSeen  string `json:"last_seen"`
	Models    string `json:"models"`
}

// ProjectSummary is one project's rollup.
type ProjectSummary struct {
	ProjectPath string `json:"project_path"`
	TokenTotals
	Sessions  int64  `json:"sessions"`
	FirstSeen string `json:"first_seen"`
	LastSeen  string `json:"last_seen"`
}

// EventPage is one page of the filtered event listing.
type EventPage struct {
	Rows  []UsageEvent `json:"rows"`
	Total int          `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
	Pages int          `json:"pages"`
}

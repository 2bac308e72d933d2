package pricing

import (
	"regexp"
	"strings"

	"github.com/halverson/ccspend/internal/model"
)

// Entry is one row of the price table. Rates are USD per million tokens;
// a nil rate means the category is not billed for that model and counts
// as zero in cost computation.
type Entry struct {
	Prefix     string
	Provider   model.Provider
	Input      *float64
	Output     *float64
	CacheWrite *float64
	CacheRead  *float64
}

func rate(v float64) *float64 { return &v }

// table is matched first-prefix-wins against normalized model names.
// Entries must stay ordered most-specific-prefix-first: "claude-opus-4-6"
// has to come before "claude-opus-4" or the longer name would resolve to
// the older rates.
var table = []Entry{
	// Anthropic
	{Prefix: "claude-opus-4-6", Provider: model.ProviderAnthropic, Input: rate(5), Output: rate(25), CacheWrite: rate(6.25), CacheRead: rate(0.5)},
	{Prefix: "claude-opus-4-5", Provider: model.ProviderAnthropic, Input: rate(5), Output: rate(25), CacheWrite: rate(6.25), CacheRead: rate(0.5)},
	{Prefix: "claude-opus-4-1", Provider: model.ProviderAnthropic, Input: rate(15), Output: rate(75), CacheWrite: rate(18.75), CacheRead: rate(1.5)},
	{Prefix: "claude-opus-4", Provider: model.ProviderAnthropic, Input: rate(15), Output: rate(75), CacheWrite: rate(18.75), CacheRead: rate(1.5)},
	{Prefix: "claude-4-opus", Provider: model.ProviderAnthropic, Input: rate(15), Output: rate(75), CacheWrite: rate(18.75), CacheRead: rate(1.5)},
	{Prefix: "claude-3-opus", Provider: model.ProviderAnthropic, Input: rate(15), Output: rate(75), CacheWrite: rate(18.75), CacheRead: rate(1.5)},
	{Prefix: "claude-sonnet-4-5", Provider: model.ProviderAnthropic, Input: rate(3), Output: rate(15), CacheWrite: rate(3.75), CacheRead: rate(0.3)},
	{Prefix: "claude-sonnet-4", Provider: model.ProviderAnthropic, Input: rate(3), Output: rate(15), CacheWrite: rate(3.75), CacheRead: rate(0.3)},
	{Prefix: "claude-4-sonnet", Provider: model.ProviderAnthropic, Input: rate(3), Output: rate(15), CacheWrite: rate(3.75), CacheRead: rate(0.3)},
	{Prefix: "claude-3-7-sonnet", Provider: model.ProviderAnthropic, Input: rate(3), Output: rate(15), CacheWrite: rate(3.75), CacheRead: rate(0.3)},
	{Prefix: "claude-3-5-sonnet", Provider: model.ProviderAnthropic, Input: rate(3), Output: rate(15), CacheWrite: rate(3.75), CacheRead: rate(0.3)},
	{Prefix: "claude-haiku-4-5", Provider: model.ProviderAnthropic, Input: rate(1), Output: rate(5), CacheWrite: rate(1.25), CacheRead: rate(0.1)},
	{Prefix: "claude-3-5-haiku", Provider: model.ProviderAnthropic, Input: rate(0.8), Output: rate(4), CacheWrite: rate(1), CacheRead: rate(0.08)},
	{Prefix: "claude-3-haiku", Provider: model.ProviderAnthropic, Input: rate(0.25), Output: rate(1.25), CacheWrite: rate(0.3), CacheRead: rate(0.03)},

	// OpenAI (no separate cache-write billing)
	{Prefix: "gpt-4o-mini", Provider: model.ProviderOpenAI, Input: rate(0.15), Output: rate(0.6), CacheRead: rate(0.075)},
	{Prefix: "gpt-4o", Provider: model.ProviderOpenAI, Input: rate(2.5), Output: rate(10), CacheRead: rate(1.25)},
	{Prefix: "gpt-4.1-nano", Provider: model.ProviderOpenAI, Input: rate(0.1), Output: rate(0.4), CacheRead: rate(0.025)},
	{Prefix: "gpt-4.1-mini", Provider: model.ProviderOpenAI, Input: rate(0.4), Output: rate(1.6), CacheRead: rate(0.1)},
	{Prefix: "gpt-4.1", Provider: model.ProviderOpenAI, Input: rate(2), Output: rate(8), CacheRead: rate(0.5)},
	{Prefix: "gpt-5-mini", Provider: model.ProviderOpenAI, Input: rate(0.25), Output: rate(2), CacheRead: rate(0.025)},
	{Prefix: "gpt-5", Provider: model.ProviderOpenAI, Input: rate(1.25), Output: rate(10), CacheRead: rate(0.125)},
	{Prefix: "o1-mini", Provider: model.ProviderOpenAI, Input: rate(1.1), Output: rate(4.4), CacheRead: rate(0.55)},
	{Prefix: "o1", Provider: model.ProviderOpenAI, Input: rate(15), Output: rate(60), CacheRead: rate(7.5)},
	{Prefix: "o3-mini", Provider: model.ProviderOpenAI, Input: rate(1.1), Output: rate(4.4), CacheRead: rate(0.55)},
	{Prefix: "o3", Provider: model.ProviderOpenAI, Input: rate(2), Output: rate(8), CacheRead: rate(0.5)},
}

// dateSuffix matches trailing -YYYYMMDD or -YYYY-MM-DD release tags.
var dateSuffix = regexp.MustCompile(`-(\d{8}|\d{4}-\d{2}-\d{2})$`)

// Normalize lower-cases a model name and strips a trailing date suffix.
// Normalizing twice yields the same result as normalizing once.
func Normalize(name string) string {
	return dateSuffix.ReplaceAllString(strings.ToLower(name), "")
}

// Lookup returns the first table entry whose prefix matches the
// normalized model name, or nil when no entry matches.
func Lookup(name string) *Entry {
	normalized := Normalize(name)
	for i := range table {
		if strings.HasPrefix(normalized, table[i].Prefix) {
			return &table[i]
		}
	}
	return nil
}

// CostUSD computes the cost of one request. Unknown models cost zero;
// nil rates count as zero. The result is always finite and non-negative.
func CostUSD(name string, inputTokens, outputTokens, cacheCreationTokens, cacheReadTokens int64) float64 {
	entry := Lookup(name)
	if entry == nil {
		return 0
	}

	cost := perMillion(inputTokens, entry.Input)
	cost += perMillion(outputTokens, entry.Output)
	cost += perMillion(cacheCreationTokens, entry.CacheWrite)
	cost += perMillion(cacheReadTokens, entry.CacheRead)
	return cost
}

func perMillion(tokens int64, rate *float64) float64 {
	if rate == nil || tokens <= 0 {
		return 0
	}
	return float64(tokens) / 1_000_000 * *rate
}

// InferProvider resolves a model's provider via the price table, falling
// back to name heuristics for models the table does not carry.
func InferProvider(name string) model.Provider {
	if entry := Lookup(name); entry != nil {
		return entry.Provider
	}

	normalized := Normalize(name)
	if strings.HasPrefix(normalized, "claude") {
		return model.ProviderAnthropic
	}
	for _, prefix := range []string{"gpt-", "chatgpt-", "o1-", "o3-", "o4-"} {
		if strings.HasPrefix(normalized, prefix) {
			return model.ProviderOpenAI
		}
	}
	return model.ProviderUnknown
}

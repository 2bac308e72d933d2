package logscan

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/halverson/ccspend/internal/model"
	"github.com/halverson/ccspend/internal/pricing"
)

// syntheticModel is the placeholder Claude Code writes for records that
// made no real model call. Those records never become events.
const syntheticModel = "<synthetic>"

// maxPromptLen caps prompt_text carried on events.
const maxPromptLen = 400

// rawRecord maps the JSONL structure emitted by Claude Code.
type rawRecord struct {
	Type        string          `json:"type"`
	SessionID   string          `json:"sessionId"`
	Timestamp   string          `json:"timestamp"`
	CWD         string          `json:"cwd"`
	IsSidechain bool            `json:"isSidechain"`
	Message     json.RawMessage `json:"message"`
}

type assistantMessage struct {
	ID    string `json:"id"`
	Model string `json:"model"`
	Usage *struct {
		InputTokens              int64 `json:"input_tokens"`
		OutputTokens             int64 `json:"output_tokens"`
		CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
		CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
	} `json:"usage"`
}

type userMessage struct {
	Content json.RawMessage `json:"content"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ExtractResult holds the events of one file plus skip statistics the
// caller can log.
type ExtractResult struct {
	Events     []model.UsageEvent
	Malformed  int // unparseable lines
	Duplicates int // request ids already seen this run
	StampedNow int // records missing a timestamp (degenerate, see below)
}

// ExtractReader scans one log file's newline-delimited JSON records and
// emits one UsageEvent per assistant record with usage accounting data.
//
// The seen set is owned by the caller for the duration of one full load
// and is shared across files; the first occurrence of a request id wins
// and later ones are dropped. projectPath comes from the locator and
// falls back to each record's cwd field.
//
// While scanning, the most recent human-authored message text is tracked
// so each event carries the prompt that preceded it in file order.
func ExtractReader(r io.Reader, projectPath string, seen map[string]struct{}) ExtractResult {
	var result ExtractResult
	var lastHumanText string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var raw rawRecord
		if err := json.Unmarshal(line, &raw); err != nil {
			result.Malformed++
			continue
		}

		if raw.Type == "user" {
			if text := humanText(raw.Message); text != "" {
				lastHumanText = text
			}
			continue
		}
		if raw.Type != "assistant" || len(raw.Message) == 0 {
			continue
		}

		var msg assistantMessage
		if err := json.Unmarshal(raw.Message, &msg); err != nil {
			result.Malformed++
			continue
		}
		if msg.Usage == nil || msg.ID == "" {
			continue
		}
		if msg.Model == "" || msg.Model == syntheticModel {
			continue
		}
		if _, dup := seen[msg.ID]; dup {
			result.Duplicates++
			continue
		}
		seen[msg.ID] = struct{}{}

		timestamp := raw.Timestamp
		if timestamp == "" {
			// The source format always carries timestamps; this is a
			// degenerate default so the event is flagged, not dropped.
			timestamp = time.Now().UTC().Format(time.RFC3339)
			result.StampedNow++
		}

		resolvedProject := projectPath
		if resolvedProject == "" {
			resolvedProject = raw.CWD
		}

		source := model.SourcePrimary
		if raw.IsSidechain {
			source = model.SourceSubagent
		}

		result.Events = append(result.Events, model.UsageEvent{
			Provider:            pricing.InferProvider(msg.Model),
			Model:               msg.Model,
			SessionID:           raw.SessionID,
			ProjectPath:         resolvedProject,
			RequestID:           msg.ID,
			Timestamp:           timestamp,
			InputTokens:         msg.Usage.InputTokens,
			OutputTokens:        msg.Usage.OutputTokens,
			CacheCreationTokens: msg.Usage.CacheCreationInputTokens,
			CacheReadTokens:     msg.Usage.CacheReadInputTokens,
			CostUSD:             pricing.CostUSD(msg.Model, msg.Usage.InputTokens, msg.Usage.OutputTokens, msg.Usage.CacheCreationInputTokens, msg.Usage.CacheReadInputTokens),
			Source:              source,
			PromptText:          lastHumanText,
		})
	}

	if err := scanner.Err(); err != nil {
		result.Malformed++
	}

	return result
}

// humanText pulls the displayable text out of a user record's message.
// Content is either a plain string or a list of typed items; only
// plain-text items count, tool results are excluded.
func humanText(message json.RawMessage) string {
	if len(message) == 0 {
		return ""
	}

	var msg userMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return ""
	}

	var asString string
	if err := json.Unmarshal(msg.Content, &asString); err == nil {
		return truncate(strings.TrimSpace(asString), maxPromptLen)
	}

	var items []contentItem
	if err := json.Unmarshal(msg.Content, &items); err != nil {
		return ""
	}
	var parts []string
	for _, item := range items {
		if item.Type == "text" && item.Text != "" {
			parts = append(parts, item.Text)
		}
	}
	return truncate(strings.TrimSpace(strings.Join(parts, " ")), maxPromptLen)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

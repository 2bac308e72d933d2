package logscan

import (
	"os"
	"sort"

	"github.com/rs/zerolog"

	"github.com/halverson/ccspend/internal/model"
)

// Scanner drives the locator and extractor across a whole data directory.
type Scanner struct {
	root   string
	logger zerolog.Logger
}

// NewScanner returns a scanner rooted at a Claude Code data directory
// (the directory containing projects/).
func NewScanner(root string, logger zerolog.Logger) *Scanner {
	return &Scanner{root: root, logger: logger}
}

// Load performs a full scan and returns the deduplicated event
// collection sorted ascending by timestamp. Loading never fails: an
// absent root or unreadable files just contribute fewer events.
func (s *Scanner) Load() []model.UsageEvent {
	files := DiscoverFiles(s.root)

	// One dedup set for the whole load; extraction steps share it but
	// never retain it past their call.
	seen := make(map[string]struct{})
	var events []model.UsageEvent

	for _, file := range files {
		f, err := os.Open(file.Path)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", file.Path).Msg("skipping unreadable log file")
			continue
		}
		result := ExtractReader(f, file.ProjectPath, seen)
		f.Close()

		if result.Malformed > 0 {
			s.logger.Warn().Str("file", file.Path).Int("lines", result.Malformed).Msg("skipped malformed log lines")
		}
		if result.StampedNow > 0 {
			s.logger.Warn().Str("file", file.Path).Int("records", result.StampedNow).Msg("records missing timestamps stamped with current time")
		}
		events = append(events, result.Events...)
	}

	// Stable so same-timestamp events keep file-scan order.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})

	s.logger.Debug().Int("files", len(files)).Int("events", len(events)).Msg("log scan complete")
	return events
}

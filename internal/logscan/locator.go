package logscan

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// logExt is the extension of Claude Code conversation logs.
const logExt = ".jsonl"

// indexFileName is the optional per-slug file mapping log files to the
// logical project path they belong to.
const indexFileName = "index.json"

// LogFile is one discovered log file and its resolved project path.
// ProjectPath may be empty; the extractor then falls back to the
// record-level working directory.
type LogFile struct {
	Path        string
	ProjectPath string
}

type indexFile struct {
	Entries []struct {
		FullPath    string `json:"fullPath"`
		ProjectPath string `json:"projectPath"`
	} `json:"entries"`
}

// DiscoverFiles enumerates the log files under root's projects directory.
// Each immediate subdirectory is one project slug; only top-level .jsonl
// files inside a slug are returned. Subdirectories hold derived copies of
// the same records and would double-count, so they are skipped. Missing
// or unreadable directories contribute no files rather than failing.
func DiscoverFiles(root string) []LogFile {
	projectsDir := filepath.Join(root, "projects")
	slugs, err := os.ReadDir(projectsDir)
	if err != nil {
		return nil
	}

	var files []LogFile
	for _, slug := range slugs {
		if !slug.IsDir() {
			continue
		}
		slugDir := filepath.Join(projectsDir, slug.Name())
		byName, fallback := readIndex(filepath.Join(slugDir, indexFileName))

		entries, err := os.ReadDir(slugDir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), logExt) {
				continue
			}
			projectPath := byName[entry.Name()]
			if projectPath == "" {
				projectPath = fallback
			}
			files = append(files, LogFile{
				Path:        filepath.Join(slugDir, entry.Name()),
				ProjectPath: projectPath,
			})
		}
	}

	return files
}

// readIndex parses a slug's index file into a file-name -> project-path
// mapping plus a slug-level fallback (the first entry's path). A missing
// or malformed index degrades to no mapping.
func readIndex(path string) (map[string]string, string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ""
	}

	var idx indexFile
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, ""
	}

	byName := make(map[string]string, len(idx.Entries))
	fallback := ""
	for _, e := range idx.Entries {
		if e.FullPath == "" || e.ProjectPath == "" {
			continue
		}
		byName[filepath.Base(e.FullPath)] = e.ProjectPath
		if fallback == "" {
			fallback = e.ProjectPath
		}
	}
	return byName, fallback
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"rindex/internal/workspace"
)

// WorkspaceConfig controls which files are indexed and how quickly changes
// are picked up.
type WorkspaceConfig struct {
	Include  []string
	Debounce time.Duration
}

// LoadWorkspaceConfigFromEnv loads workspace settings.
// Supports the following variables:
//   - RINDEX_INCLUDE: comma-separated doublestar globs (default: R sources)
//   - RINDEX_DEBOUNCE_MS: watcher debounce in milliseconds (default: 300)
func LoadWorkspaceConfigFromEnv() WorkspaceConfig {
	cfg := WorkspaceConfig{
		Include:  workspace.DefaultInclude,
		Debounce: 300 * time.Millisecond,
	}

	if include := os.Getenv("RINDEX_INCLUDE"); include != "" {
		var globs []string
		for _, g := range splitGlobs(include) {
			if g = strings.TrimSpace(g); g != "" {
				globs = append(globs, g)
			}
		}
		if len(globs) > 0 {
			cfg.Include = globs
		}
	}

	if ms, err := strconv.Atoi(os.Getenv("RINDEX_DEBOUNCE_MS")); err == nil && ms > 0 {
		cfg.Debounce = time.Duration(ms) * time.Millisecond
	}

	return cfg
}

// splitGlobs splits on commas outside of {...} alternations.
func splitGlobs(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

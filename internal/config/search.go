package config

import (
	"os"
	"strconv"

	"rindex/internal/search/symbols"
)

// SearchConfig holds defaults for symbol queries.
type SearchConfig struct {
	// Mode selects how non-wildcard terms match: fuzzy (subsequence) or
	// prefix. Wildcard terms always match as wildcards.
	Mode          symbols.MatchMode
	CaseSensitive bool
	Limit         int
}

// LoadSearchConfigFromEnv loads search defaults from environment variables.
// Supports the following variables:
//   - RINDEX_MATCH_MODE: "fuzzy" (default) or "prefix"
//   - RINDEX_CASE_SENSITIVE: true/false (default false)
//   - RINDEX_SEARCH_LIMIT: maximum results, 0 for unlimited (default 0)
//
// Invalid values are ignored.
func LoadSearchConfigFromEnv() SearchConfig {
	cfg := SearchConfig{Mode: symbols.MatchSubsequence}

	if mode, err := symbols.ParseMatchMode(os.Getenv("RINDEX_MATCH_MODE")); err == nil &&
		(mode == symbols.MatchSubsequence || mode == symbols.MatchPrefix) {
		cfg.Mode = mode
	}

	if b, err := strconv.ParseBool(os.Getenv("RINDEX_CASE_SENSITIVE")); err == nil {
		cfg.CaseSensitive = b
	}

	if n, err := strconv.Atoi(os.Getenv("RINDEX_SEARCH_LIMIT")); err == nil && n >= 0 {
		cfg.Limit = n
	}

	return cfg
}

// PrefixOnly reports whether plain terms should be prefix matched.
func (c SearchConfig) PrefixOnly() bool {
	return c.Mode == symbols.MatchPrefix
}

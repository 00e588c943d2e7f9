package config

import (
	"reflect"
	"testing"
	"time"

	"rindex/internal/resolver"
	"rindex/internal/search/symbols"
	"rindex/internal/workspace"
)

func TestLoadSearchConfigFromEnv(t *testing.T) {
	tests := []struct {
		name      string
		mode      string
		caseSens  string
		limit     string
		want      SearchConfig
		wantPrefx bool
	}{
		{"defaults", "", "", "", SearchConfig{Mode: symbols.MatchSubsequence}, false},
		{"prefix", "prefix", "true", "25", SearchConfig{Mode: symbols.MatchPrefix, CaseSensitive: true, Limit: 25}, true},
		{"wildcard not a default mode", "wildcard", "", "", SearchConfig{Mode: symbols.MatchSubsequence}, false},
		{"invalid values ignored", "regex", "maybe", "-3", SearchConfig{Mode: symbols.MatchSubsequence}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RINDEX_MATCH_MODE", tt.mode)
			t.Setenv("RINDEX_CASE_SENSITIVE", tt.caseSens)
			t.Setenv("RINDEX_SEARCH_LIMIT", tt.limit)

			got := LoadSearchConfigFromEnv()
			if got != tt.want {
				t.Errorf("LoadSearchConfigFromEnv() = %+v, want %+v", got, tt.want)
			}
			if got.PrefixOnly() != tt.wantPrefx {
				t.Errorf("PrefixOnly() = %v, want %v", got.PrefixOnly(), tt.wantPrefx)
			}
		})
	}
}

func TestLoadWorkspaceConfigFromEnv(t *testing.T) {
	t.Setenv("RINDEX_INCLUDE", "")
	t.Setenv("RINDEX_DEBOUNCE_MS", "")

	cfg := LoadWorkspaceConfigFromEnv()
	if !reflect.DeepEqual(cfg.Include, workspace.DefaultInclude) {
		t.Errorf("Include = %v, want default", cfg.Include)
	}
	if cfg.Debounce != 300*time.Millisecond {
		t.Errorf("Debounce = %v", cfg.Debounce)
	}

	t.Setenv("RINDEX_INCLUDE", "R/**/*.{R,r}, tests/**/*.R,,")
	t.Setenv("RINDEX_DEBOUNCE_MS", "50")

	cfg = LoadWorkspaceConfigFromEnv()
	want := []string{"R/**/*.{R,r}", "tests/**/*.R"}
	if !reflect.DeepEqual(cfg.Include, want) {
		t.Errorf("Include = %v, want %v", cfg.Include, want)
	}
	if cfg.Debounce != 50*time.Millisecond {
		t.Errorf("Debounce = %v", cfg.Debounce)
	}
}

func TestLoadResolverConfigFromEnv(t *testing.T) {
	t.Setenv("RINDEX_RSCRIPT", "")
	t.Setenv("RINDEX_RESOLVER_WORKERS", "")
	t.Setenv("RINDEX_RESOLVER_INTERVAL", "")

	cfg := LoadResolverConfigFromEnv()
	want := ResolverConfig{Rscript: "Rscript", Workers: resolver.DefaultWorkers, Interval: resolver.DefaultInterval}
	if cfg != want {
		t.Errorf("defaults = %+v, want %+v", cfg, want)
	}

	t.Setenv("RINDEX_RSCRIPT", "/opt/R/bin/Rscript")
	t.Setenv("RINDEX_RESOLVER_WORKERS", "4")
	t.Setenv("RINDEX_RESOLVER_INTERVAL", "1m")

	cfg = LoadResolverConfigFromEnv()
	want = ResolverConfig{Rscript: "/opt/R/bin/Rscript", Workers: 4, Interval: time.Minute}
	if cfg != want {
		t.Errorf("overrides = %+v, want %+v", cfg, want)
	}

	t.Setenv("RINDEX_RSCRIPT", "definitely-not-rscript-binary")
	if LoadResolverConfigFromEnv().Available() {
		t.Error("Available() should be false for a missing binary")
	}
}

package config

import (
	"os"
	"strconv"
	"time"

	"rindex/internal/resolver"
)

// ResolverConfig controls background package resolution.
type ResolverConfig struct {
	Rscript  string
	Workers  int
	Interval time.Duration
}

// LoadResolverConfigFromEnv loads resolver settings.
// Supports the following variables:
//   - RINDEX_RSCRIPT: Rscript executable (default: "Rscript" on PATH)
//   - RINDEX_RESOLVER_WORKERS: concurrent Rscript processes (default: 2)
//   - RINDEX_RESOLVER_INTERVAL: Go duration between passes (default: 30s)
func LoadResolverConfigFromEnv() ResolverConfig {
	cfg := ResolverConfig{
		Rscript:  "Rscript",
		Workers:  resolver.DefaultWorkers,
		Interval: resolver.DefaultInterval,
	}

	if bin := os.Getenv("RINDEX_RSCRIPT"); bin != "" {
		cfg.Rscript = bin
	}
	if n, err := strconv.Atoi(os.Getenv("RINDEX_RESOLVER_WORKERS")); err == nil && n > 0 {
		cfg.Workers = n
	}
	if d, err := time.ParseDuration(os.Getenv("RINDEX_RESOLVER_INTERVAL")); err == nil && d > 0 {
		cfg.Interval = d
	}

	return cfg
}

// Available reports whether the configured Rscript can be found.
func (c ResolverConfig) Available() bool {
	return resolver.RscriptAvailable(c.Rscript)
}

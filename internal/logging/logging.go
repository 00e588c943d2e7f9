// Package logging builds the slog loggers used across rindex.
//
// Configuration is controlled via environment variables:
//   - RINDEX_LOG_LEVEL: debug, info, warn, error (default: info)
//   - RINDEX_LOG_FORMAT: text, json (default: text)
//   - RINDEX_LOG_CALLER: when true, records the calling file and line
//
// All logging goes to stderr so search output on stdout stays parseable.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Log levels re-exported for convenience
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Config holds logging configuration
type Config struct {
	Level  slog.Level
	Format string    // "text" or "json"
	Output io.Writer // defaults to os.Stderr
	Source string    // component name attached to every record
	Caller bool      // add file:line of the call site
}

// DefaultConfig returns sensible defaults for the given component.
func DefaultConfig(source string) Config {
	return Config{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
		Source: source,
	}
}

// ParseLevel maps a level name to a slog level. Unknown names report false.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// LoadConfigFromEnv returns DefaultConfig(source) with overrides from the
// RINDEX_LOG_* variables. Unknown values are ignored.
func LoadConfigFromEnv(source string) Config {
	cfg := DefaultConfig(source)

	if level, ok := ParseLevel(os.Getenv("RINDEX_LOG_LEVEL")); ok {
		cfg.Level = level
	}

	switch format := strings.ToLower(os.Getenv("RINDEX_LOG_FORMAT")); format {
	case "text", "json":
		cfg.Format = format
	}

	if caller, err := strconv.ParseBool(os.Getenv("RINDEX_LOG_CALLER")); err == nil {
		cfg.Caller = caller
	}

	return cfg
}

// New creates a configured slog.Logger.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.Caller,
		// The "source" key is taken by the component name.
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.SourceKey && a.Value.Kind() == slog.KindAny {
				if src, ok := a.Value.Any().(*slog.Source); ok {
					return slog.String("caller", fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	if cfg.Source != "" {
		logger = logger.With("source", cfg.Source)
	}
	return logger
}

// Default returns a logger configured from the environment. Entry points
// call this once and pass the logger down.
func Default(source string) *slog.Logger {
	return New(LoadConfigFromEnv(source))
}

// Nop returns a logger that discards all output.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

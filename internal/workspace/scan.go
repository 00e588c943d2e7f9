package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultInclude matches R source files.
var DefaultInclude = []string{"**/*.{R,r}", "**/.Rprofile"}

// ignoredDirs are skipped regardless of .gitignore.
var ignoredDirs = map[string]bool{
	".git":          true,
	".svn":          true,
	".hg":           true,
	".idea":         true,
	".vscode":       true,
	".Rproj.user":   true,
	"renv":          true,
	"packrat":       true,
	"node_modules":  true,
	"revdep":        true,
	".rindex":       true,
	"rsconnect":     true,
	".quarto":       true,
	"_freeze":       true,
	"__pycache__":   true,
	".cache":        true,
	".pytest_cache": true,
}

// FileFilter decides which files under a root are indexed.
type FileFilter struct {
	root    string
	include []string
	gi      *ignore.GitIgnore
}

// NewFileFilter loads root's .gitignore and validates the include globs.
// Globs are matched against slash-separated paths relative to root. An
// empty include list means DefaultInclude.
func NewFileFilter(root string, include []string) (*FileFilter, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if len(include) == 0 {
		include = DefaultInclude
	}
	for _, pattern := range include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include pattern %q", pattern)
		}
	}
	return &FileFilter{
		root:    abs,
		include: include,
		gi:      loadGitignore(abs),
	}, nil
}

// Root returns the absolute root directory.
func (f *FileFilter) Root() string {
	return f.root
}

// Contains reports whether path lies under the root.
func (f *FileFilter) Contains(path string) bool {
	_, ok := f.rel(path)
	return ok
}

// SkipDir reports whether the directory at path should not be descended.
func (f *FileFilter) SkipDir(path string) bool {
	if ignoredDirs[filepath.Base(path)] {
		return true
	}
	rel, ok := f.rel(path)
	if !ok {
		return true
	}
	return rel != "." && f.gi != nil && f.gi.MatchesPath(rel+"/")
}

// Include reports whether the file at path should be indexed.
func (f *FileFilter) Include(path string) bool {
	rel, ok := f.rel(path)
	if !ok || rel == "." {
		return false
	}
	if f.gi != nil && f.gi.MatchesPath(rel) {
		return false
	}
	for dir := filepath.Dir(rel); dir != "."; dir = filepath.Dir(dir) {
		if ignoredDirs[filepath.Base(dir)] {
			return false
		}
	}
	for _, pattern := range f.include {
		if doublestar.MatchUnvalidated(pattern, filepath.ToSlash(rel)) {
			return true
		}
	}
	return false
}

func (f *FileFilter) rel(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(f.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// ScanStats summarizes an IndexDir run.
type ScanStats struct {
	Files  int
	Items  int
	Failed int
}

// IndexFile reads path and indexes it under its absolute path.
func (w *Workspace) IndexFile(path string) (int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	code, err := os.ReadFile(abs)
	if err != nil {
		return 0, err
	}
	idx, err := w.Update(abs, normalizeNewlines(string(code)))
	if err != nil {
		return 0, err
	}
	return idx.Len(), nil
}

// IndexDir indexes every file under filter's root that the filter
// includes. Files that fail to parse are logged and skipped.
func (w *Workspace) IndexDir(ctx context.Context, filter *FileFilter) (ScanStats, error) {
	var stats ScanStats

	err := filepath.WalkDir(filter.Root(), func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if entry.IsDir() {
			if path != filter.Root() && filter.SkipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() || !filter.Include(path) {
			return nil
		}

		n, err := w.IndexFile(path)
		if err != nil {
			stats.Failed++
			w.logger.Warn("index failed", "path", path, "error", err)
			return nil
		}
		stats.Files++
		stats.Items += n
		return nil
	})
	if err != nil && !errors.Is(err, filepath.SkipAll) {
		return stats, err
	}

	w.logger.Info("indexed directory", "root", filter.Root(), "files", stats.Files, "items", stats.Items, "failed", stats.Failed)
	return stats, nil
}

// normalizeNewlines converts CRLF and lone CR line breaks to LF.
func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// loadGitignore loads gitignore patterns from root's .gitignore and the
// global ~/.gitignore.
func loadGitignore(root string) *ignore.GitIgnore {
	var patterns []string

	if home, err := os.UserHomeDir(); err == nil {
		patterns = appendPatterns(patterns, filepath.Join(home, ".gitignore"))
	}
	patterns = appendPatterns(patterns, filepath.Join(root, ".gitignore"))

	if len(patterns) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(patterns...)
}

func appendPatterns(patterns []string, path string) []string {
	content, err := os.ReadFile(path)
	if err != nil {
		return patterns
	}
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			patterns = append(patterns, trimmed)
		}
	}
	return patterns
}

// Package registry tracks library completions: the exported symbols of R
// packages, plus the set of packages that indexed source refers to.
//
// A Registry is shared by every source index in the process. All access is
// serialized by a single lock and every accessor returns a copy.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"rindex/internal/logging"
)

// ExportType is the kind of object a package exports.
type ExportType int

// Values follow the type codes the R side of the resolver reports.
const (
	ExportUnknown ExportType = iota
	ExportFunction
	ExportData
	ExportS4Generic
	ExportS4Class
	ExportEnvironment
)

func (t ExportType) String() string {
	switch t {
	case ExportFunction:
		return "function"
	case ExportData:
		return "data"
	case ExportS4Generic:
		return "s4generic"
	case ExportS4Class:
		return "s4class"
	case ExportEnvironment:
		return "environment"
	default:
		return "unknown"
	}
}

// Completions is the exported-symbol set of one package. Exports and Types
// are parallel; Functions maps a function name to its formal arguments.
type Completions struct {
	Package   string              `json:"package"`
	Exports   []string            `json:"exports"`
	Types     []ExportType        `json:"types"`
	Functions map[string][]string `json:"functions"`
}

// Clone returns a deep copy.
func (c Completions) Clone() Completions {
	out := Completions{
		Package: c.Package,
		Exports: slices.Clone(c.Exports),
		Types:   slices.Clone(c.Types),
	}
	if c.Functions != nil {
		out.Functions = make(map[string][]string, len(c.Functions))
		for name, args := range c.Functions {
			out.Functions[name] = slices.Clone(args)
		}
	}
	return out
}

// IsZero reports whether c is the zero value returned for unknown packages.
func (c Completions) IsZero() bool {
	return c.Package == "" && len(c.Exports) == 0 && len(c.Types) == 0 && len(c.Functions) == 0
}

// TypeOf returns the export type of name, or ExportUnknown.
func (c Completions) TypeOf(name string) ExportType {
	i := slices.Index(c.Exports, name)
	if i < 0 || i >= len(c.Types) {
		return ExportUnknown
	}
	return c.Types[i]
}

// Cache persists completion sets between runs. Save stores c under pkg;
// Load returns each set with Package set to the key it was saved under.
type Cache interface {
	Load(ctx context.Context) ([]Completions, error)
	Save(ctx context.Context, pkg string, c Completions) error
	Close() error
}

// Registry is the process-wide store of library completions.
type Registry struct {
	mu          sync.RWMutex
	completions map[string]Completions
	inferred    map[string]struct{}

	// saveMu orders cache writes the same way as in-memory writes without
	// holding mu during I/O.
	saveMu sync.Mutex
	cache  Cache
	logger *slog.Logger
}

// New creates an empty in-memory registry.
func New() *Registry {
	return &Registry{
		completions: make(map[string]Completions),
		inferred:    make(map[string]struct{}),
		logger:      logging.Nop(),
	}
}

// NewWithCache creates a registry backed by cache and loads its contents.
func NewWithCache(ctx context.Context, cache Cache, logger *slog.Logger) (*Registry, error) {
	r := New()
	r.cache = cache
	if logger != nil {
		r.logger = logger
	}

	stored, err := cache.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading completions cache: %w", err)
	}
	for _, c := range stored {
		r.completions[c.Package] = c.Clone()
	}
	r.logger.Debug("loaded cached completions", "packages", len(stored))
	return r, nil
}

// InferredPackages returns a sorted snapshot of the inferred package names.
func (r *Registry) InferredPackages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.inferred))
}

// AddInferredPackages records package names referenced by analyzed source.
// The set only grows.
func (r *Registry) AddInferredPackages(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range names {
		if name != "" {
			r.inferred[name] = struct{}{}
		}
	}
}

// AddCompletions stores c for pkg, replacing any previous entry. c is kept
// as given; the cache keys it by pkg.
func (r *Registry) AddCompletions(pkg string, c Completions) {
	c = c.Clone()

	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	r.mu.Lock()
	r.completions[pkg] = c
	r.mu.Unlock()

	if r.cache == nil {
		return
	}
	if err := r.cache.Save(context.Background(), pkg, c); err != nil {
		r.logger.Warn("saving completions failed", "package", pkg, "error", err)
	}
}

// Completions returns the entry for pkg, or the zero value when it is not
// known yet. A zero value does not mean the package exports nothing; use
// LookupCompletions to tell the two apart.
func (r *Registry) Completions(pkg string) Completions {
	c, _ := r.LookupCompletions(pkg)
	return c
}

// LookupCompletions returns the entry for pkg and whether one exists.
func (r *Registry) LookupCompletions(pkg string) (Completions, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.completions[pkg]
	if !ok {
		return Completions{}, false
	}
	return c.Clone(), true
}

// UnindexedPackages returns the sorted inferred packages that have no
// completions yet. This is the resolver's work queue.
func (r *Registry) UnindexedPackages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []string
	for name := range r.inferred {
		if _, ok := r.completions[name]; !ok {
			result = append(result, name)
		}
	}
	slices.Sort(result)
	return result
}

// Packages returns the sorted names of packages with completions.
func (r *Registry) Packages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.completions))
}

// Close releases the cache, if any.
func (r *Registry) Close() error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Close()
}

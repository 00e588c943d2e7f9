// Package workspace keeps one source index per file or buffer and answers
// queries across all of them, optionally including the exports of the
// packages the source refers to.
package workspace

import (
	"cmp"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"

	"rindex/internal/logging"
	"rindex/internal/registry"
	"rindex/internal/search/symbols"
)

// Registry is the part of the completions registry a workspace uses.
type Registry interface {
	AddInferredPackages(names ...string)
	Completions(pkg string) registry.Completions
	Packages() []string
}

// Workspace maps contexts (file paths or buffer ids) to their source index.
// Indices are built outside the lock and published whole.
type Workspace struct {
	mu      sync.RWMutex
	indices map[string]*symbols.SourceIndex

	registry Registry
	logger   *slog.Logger
}

// New creates an empty workspace. reg may be nil, in which case package
// references are dropped and library queries return nothing.
func New(reg Registry, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Workspace{
		indices:  make(map[string]*symbols.SourceIndex),
		registry: reg,
		logger:   logger,
	}
}

// Update re-indexes context from code and replaces the previous index. On
// error the previous index stays in place.
func (w *Workspace) Update(context, code string) (*symbols.SourceIndex, error) {
	idx, err := symbols.NewSourceIndex(context, code)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.indices[context] = idx
	w.mu.Unlock()

	if w.registry != nil {
		w.registry.AddInferredPackages(idx.InferredPackages()...)
	}
	w.logger.Debug("indexed", "context", context, "items", idx.Len())
	return idx, nil
}

// Remove drops the index for context and reports whether one existed.
func (w *Workspace) Remove(context string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, ok := w.indices[context]
	delete(w.indices, context)
	return ok
}

// Index returns the current index for context.
func (w *Workspace) Index(context string) (*symbols.SourceIndex, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	idx, ok := w.indices[context]
	return idx, ok
}

// Contexts returns the indexed contexts in sorted order.
func (w *Workspace) Contexts() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return slices.Sorted(maps.Keys(w.indices))
}

// Query describes a workspace search.
type Query struct {
	// Term is matched against item names. A "pkg::" prefix restricts the
	// search to the exports of pkg.
	Term             string `json:"term"`
	PrefixOnly       bool   `json:"prefix_only,omitempty"`
	CaseSensitive    bool   `json:"case_sensitive,omitempty"`
	IncludeLibraries bool   `json:"include_libraries,omitempty"`

	// Rank orders results by fuzzy match score, best first.
	Rank  bool `json:"rank,omitempty"`
	Limit int  `json:"limit,omitempty"`
}

// Result is one search hit: a source item or a library export.
type Result struct {
	Name      string                `json:"name"`
	Kind      string                `json:"kind"`
	Context   string                `json:"context,omitempty"`
	Package   string                `json:"package,omitempty"`
	Line      int                   `json:"line,omitempty"`
	Column    int                   `json:"column,omitempty"`
	Signature []symbols.MethodParam `json:"signature,omitempty"`
	Args      []string              `json:"args,omitempty"`
	Score     int                   `json:"score,omitempty"`
}

// IsLibrary reports whether r is a package export rather than a source item.
func (r Result) IsLibrary() bool {
	return r.Package != ""
}

func (r Result) String() string {
	if r.IsLibrary() {
		return fmt.Sprintf("%s::%s [%s]", r.Package, r.Name, r.Kind)
	}
	return fmt.Sprintf("%s:%d:%d: %s [%s]", r.Context, r.Line, r.Column, r.Name, r.Kind)
}

// ResultFromItem converts a source item to a Result.
func ResultFromItem(it symbols.Item) Result {
	return Result{
		Name:      it.Name(),
		Kind:      it.Kind().String(),
		Context:   it.Context(),
		Line:      it.Line(),
		Column:    it.Column(),
		Signature: it.Signature(),
	}
}

// SplitQualified splits "pkg::name" or "pkg:::name" into its parts. ok is
// false when term is not qualified.
func SplitQualified(term string) (pkg, name string, ok bool) {
	i := strings.Index(term, "::")
	if i <= 0 {
		return "", term, false
	}
	return term[:i], strings.TrimPrefix(term[i+2:], ":"), true
}

// Search runs q against every index in context order, then against library
// exports when asked to.
func (w *Workspace) Search(q Query) ([]Result, error) {
	pkg, term, qualified := SplitQualified(q.Term)

	m, err := symbols.NewQueryMatcher(term, q.PrefixOnly, q.CaseSensitive)
	if err != nil {
		return nil, err
	}

	var results []Result
	if !qualified {
		var items []symbols.Item
		for _, idx := range w.snapshot() {
			items = idx.SearchMatcher(m, "", items)
		}
		results = make([]Result, 0, len(items))
		for _, it := range items {
			results = append(results, ResultFromItem(it))
		}
	}

	if w.registry != nil && (qualified || q.IncludeLibraries) {
		pkgs := []string{pkg}
		if !qualified {
			pkgs = w.registry.Packages()
		}
		for _, p := range pkgs {
			results = appendExports(results, w.registry.Completions(p), p, m)
		}
	}

	if q.Rank {
		results = rank(results, term)
	}
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

func (w *Workspace) snapshot() []*symbols.SourceIndex {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]*symbols.SourceIndex, 0, len(w.indices))
	for _, ctx := range slices.Sorted(maps.Keys(w.indices)) {
		out = append(out, w.indices[ctx])
	}
	return out
}

func appendExports(results []Result, c registry.Completions, pkg string, m symbols.Matcher) []Result {
	for i, name := range c.Exports {
		if !m.MatchString(name) {
			continue
		}
		typ := registry.ExportUnknown
		if i < len(c.Types) {
			typ = c.Types[i]
		}
		results = append(results, Result{
			Name:    name,
			Kind:    typ.String(),
			Package: pkg,
			Args:    slices.Clone(c.Functions[name]),
		})
	}
	return results
}

// resultNames adapts results to fuzzy.Source.
type resultNames []Result

func (r resultNames) String(i int) string { return r[i].Name }
func (r resultNames) Len() int { return len(r) }

// rank orders results by fuzzy score, best first. Results the fuzzy matcher
// does not score keep their relative order after the scored ones.
func rank(results []Result, term string) []Result {
	pattern := strings.ReplaceAll(term, "*", "")
	if pattern == "" || len(results) == 0 {
		return results
	}

	scored := make(map[int]int)
	for _, match := range fuzzy.FindFrom(pattern, resultNames(results)) {
		scored[match.Index] = match.Score
	}

	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		sa, okA := scored[a]
		sb, okB := scored[b]
		switch {
		case okA && !okB:
			return -1
		case !okA && okB:
			return 1
		case okA && okB:
			return cmp.Compare(sb, sa)
		default:
			return 0
		}
	})

	out := make([]Result, len(results))
	for i, j := range order {
		out[i] = results[j]
		out[i].Score = scored[j]
	}
	return out
}

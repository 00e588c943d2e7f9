package symbols

import (
	"fmt"
	"slices"

	"rindex/internal/rlang"
)

// Predicate selects items during a search. Matcher.Match satisfies it.
type Predicate func(Item) bool

// Extractor turns source text into definitions and package references.
type Extractor interface {
	Extract(code string) (*rlang.Result, error)
}

// SourceIndex holds the items extracted from one unit of R source.
//
// A SourceIndex is read-only once constructed and safe for concurrent
// searches after it has been published to other goroutines. When the source
// changes, build a new index rather than patching this one.
type SourceIndex struct {
	context  string
	items    []Item
	packages []string
}

// NewSourceIndex indexes code with the default R extractor.
//
// Requirements for code:
//   - Must be UTF-8 encoded
//   - Must use \n only for linebreaks
func NewSourceIndex(context, code string) (*SourceIndex, error) {
	return NewSourceIndexWith(context, code, rlang.Extractor{})
}

// NewSourceIndexWith indexes code with the given extractor. Extraction
// errors are returned and no index is built.
func NewSourceIndexWith(context, code string, ex Extractor) (*SourceIndex, error) {
	res, err := ex.Extract(code)
	if err != nil {
		return nil, fmt.Errorf("indexing %s: %w", context, err)
	}

	items := make([]Item, 0, len(res.Definitions))
	for _, def := range res.Definitions {
		items = append(items, itemFromDefinition(def))
	}

	return &SourceIndex{
		context:  context,
		items:    items,
		packages: slices.Clone(res.Packages),
	}, nil
}

// NewSourceIndexFromItems builds an index over already extracted items.
// Their contexts are discarded.
func NewSourceIndexFromItems(context string, items []Item) *SourceIndex {
	own := make([]Item, len(items))
	for i, it := range items {
		own[i] = it.WithContext("")
	}
	return &SourceIndex{context: context, items: own}
}

func itemFromDefinition(def rlang.Definition) Item {
	var kind Kind
	switch def.Kind {
	case rlang.DefinitionFunction:
		kind = KindFunction
	case rlang.DefinitionMethod:
		kind = KindMethod
	case rlang.DefinitionClass:
		kind = KindClass
	}

	var sig []MethodParam
	for _, p := range def.Signature {
		sig = append(sig, MethodParam{Name: p.Name, Type: p.Type})
	}

	return NewItem(kind, def.Name, sig, def.BraceLevel, toUnsigned(def.Line), toUnsigned(def.Column))
}

func toUnsigned(v int) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

// Context returns the identifier the index was built with.
func (idx *SourceIndex) Context() string {
	return idx.context
}

// Len returns the number of indexed items.
func (idx *SourceIndex) Len() int {
	return len(idx.items)
}

// Items returns the indexed items in source order, stamped with the index
// context.
func (idx *SourceIndex) Items() []Item {
	return idx.Search(nil, "", nil)
}

// InferredPackages returns the packages the source references.
func (idx *SourceIndex) InferredPackages() []string {
	return slices.Clone(idx.packages)
}

// Search appends every item accepted by pred to out, stamped with
// newContext (the index context when empty), and returns the extended
// slice. A nil pred accepts everything.
func (idx *SourceIndex) Search(pred Predicate, newContext string, out []Item) []Item {
	if newContext == "" {
		newContext = idx.context
	}
	for _, it := range idx.items {
		if pred == nil || pred(it) {
			out = append(out, it.WithContext(newContext))
		}
	}
	return out
}

// SearchMatcher is Search with a compiled Matcher.
func (idx *SourceIndex) SearchMatcher(m Matcher, newContext string, out []Item) []Item {
	return idx.Search(m.Match, newContext, out)
}

// SearchTerm builds a query matcher from term and appends the matches to
// out. See NewQueryMatcher for how the mode is chosen.
func (idx *SourceIndex) SearchTerm(term, newContext string, prefixOnly, caseSensitive bool, out []Item) ([]Item, error) {
	m, err := NewQueryMatcher(term, prefixOnly, caseSensitive)
	if err != nil {
		return out, err
	}
	return idx.SearchMatcher(m, newContext, out), nil
}

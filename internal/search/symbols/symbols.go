package symbols

import (
	"encoding/json"
	"math"
	"regexp"
	"slices"
	"strings"
)

// Kind is the type of definition an Item describes.
type Kind int

const (
	KindNone Kind = iota
	KindFunction
	KindMethod
	KindClass
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindMethod:
		return "method"
	case KindClass:
		return "class"
	default:
		return "none"
	}
}

// MethodParam is one entry of an S4 method signature. Name is empty for
// positional entries; Type is empty for plain function formals.
type MethodParam struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// Item is an indexed definition. Items are immutable; WithContext returns a
// stamped copy.
type Item struct {
	context    string
	kind       Kind
	name       string
	signature  []MethodParam
	braceLevel int
	line       uint64
	column     uint64
}

// NewItem creates an item with an empty context.
func NewItem(kind Kind, name string, signature []MethodParam, braceLevel int, line, column uint64) Item {
	return Item{
		kind:       kind,
		name:       name,
		signature:  slices.Clone(signature),
		braceLevel: braceLevel,
		line:       line,
		column:     column,
	}
}

func (i Item) Kind() Kind { return i.kind }
func (i Item) IsFunction() bool { return i.kind == KindFunction }
func (i Item) IsMethod() bool { return i.kind == KindMethod }
func (i Item) IsClass() bool { return i.kind == KindClass }
func (i Item) Context() string { return i.context }
func (i Item) Name() string { return i.name }
func (i Item) BraceLevel() int { return i.braceLevel }
func (i Item) Line() int { return saturate(i.line) }
func (i Item) Column() int { return saturate(i.column) }
func (i Item) IsTopLevel() bool { return i.braceLevel == 0 }

// Signature returns a copy of the method signature.
func (i Item) Signature() []MethodParam {
	return slices.Clone(i.signature)
}

func saturate(v uint64) int {
	if v > math.MaxInt {
		return math.MaxInt
	}
	return int(v)
}

// WithContext returns a copy of the item stamped with context.
func (i Item) WithContext(context string) Item {
	i.context = context
	return i
}

// Equal reports whether two items have identical fields.
func (i Item) Equal(other Item) bool {
	return i.context == other.context &&
		i.kind == other.kind &&
		i.name == other.name &&
		slices.Equal(i.signature, other.signature) &&
		i.braceLevel == other.braceLevel &&
		i.line == other.line &&
		i.column == other.column
}

// NameStartsWith reports whether the name has term as a prefix.
func (i Item) NameStartsWith(term string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.HasPrefix(i.name, term)
	}
	return strings.HasPrefix(fold(i.name), fold(term))
}

// NameIsSubsequence reports whether every character of term appears in the
// name in order, not necessarily contiguously.
func (i Item) NameIsSubsequence(term string, caseSensitive bool) bool {
	if caseSensitive {
		return isSubsequence(i.name, term)
	}
	return isSubsequence(fold(i.name), fold(term))
}

// NameContains reports whether term occurs in the name as a substring.
func (i Item) NameContains(term string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.Contains(i.name, term)
	}
	return strings.Contains(fold(i.name), fold(term))
}

// NameMatches reports whether the name matches re. When caseSensitive is
// false the name is folded first; re is expected to be built from a folded
// pattern.
func (i Item) NameMatches(re *regexp.Regexp, caseSensitive bool) bool {
	if caseSensitive {
		return re.MatchString(i.name)
	}
	return re.MatchString(fold(i.name))
}

type itemJSON struct {
	Context    string        `json:"context,omitempty"`
	Kind       string        `json:"kind"`
	Name       string        `json:"name"`
	Signature  []MethodParam `json:"signature,omitempty"`
	BraceLevel int           `json:"brace_level"`
	Line       int           `json:"line"`
	Column     int           `json:"column"`
}

// MarshalJSON renders the item for CLI and tool output.
func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(itemJSON{
		Context:    i.context,
		Kind:       i.kind.String(),
		Name:       i.name,
		Signature:  i.signature,
		BraceLevel: i.braceLevel,
		Line:       i.Line(),
		Column:     i.Column(),
	})
}

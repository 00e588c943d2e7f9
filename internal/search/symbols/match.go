package symbols

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// ErrInvalidQuery is returned when a search term cannot be turned into a
// matcher.
var ErrInvalidQuery = errors.New("invalid query")

// MatchMode selects the string matching strategy of a Matcher.
type MatchMode int

const (
	// MatchSubsequence matches when the term's characters occur in order.
	MatchSubsequence MatchMode = iota
	// MatchPrefix matches names starting with the term.
	MatchPrefix
	// MatchSubstring matches names containing the term.
	MatchSubstring
	// MatchWildcard matches names against a pattern where * is any run.
	MatchWildcard
)

func (m MatchMode) String() string {
	switch m {
	case MatchPrefix:
		return "prefix"
	case MatchSubstring:
		return "substring"
	case MatchWildcard:
		return "wildcard"
	default:
		return "subsequence"
	}
}

// ParseMatchMode maps a user supplied mode name to a MatchMode.
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(s) {
	case "", "fuzzy", "subsequence":
		return MatchSubsequence, nil
	case "prefix":
		return MatchPrefix, nil
	case "substring", "contains":
		return MatchSubstring, nil
	case "wildcard", "glob":
		return MatchWildcard, nil
	default:
		return 0, fmt.Errorf("unknown match mode %q", s)
	}
}

// Matcher is a compiled name predicate. Build one with NewQueryMatcher or a
// mode-specific constructor; the zero value matches only via subsequence of
// an empty term, i.e. everything.
type Matcher struct {
	Mode          MatchMode
	Term          string // folded when CaseSensitive is false
	CaseSensitive bool
	pattern       *regexp.Regexp
}

// NewQueryMatcher builds the matcher used for interactive queries. A term
// containing * is a wildcard pattern which, like the other modes, matches
// anywhere in the name unless prefixOnly anchors it at the start. Otherwise
// prefixOnly selects prefix matching and the default is subsequence.
func NewQueryMatcher(term string, prefixOnly, caseSensitive bool) (Matcher, error) {
	if strings.Contains(term, "*") {
		pattern := term + "*"
		if !prefixOnly {
			pattern = "*" + pattern
		}
		return NewWildcardMatcher(pattern, caseSensitive)
	}
	if prefixOnly {
		return NewPrefixMatcher(term, caseSensitive), nil
	}
	return NewSubsequenceMatcher(term, caseSensitive), nil
}

// NewMatcher builds a matcher for an explicit mode.
func NewMatcher(mode MatchMode, term string, caseSensitive bool) (Matcher, error) {
	switch mode {
	case MatchPrefix:
		return NewPrefixMatcher(term, caseSensitive), nil
	case MatchSubstring:
		return NewSubstringMatcher(term, caseSensitive), nil
	case MatchWildcard:
		return NewWildcardMatcher(term, caseSensitive)
	case MatchSubsequence:
		return NewSubsequenceMatcher(term, caseSensitive), nil
	default:
		return Matcher{}, fmt.Errorf("%w: unknown match mode %d", ErrInvalidQuery, int(mode))
	}
}

func NewPrefixMatcher(term string, caseSensitive bool) Matcher {
	return Matcher{Mode: MatchPrefix, Term: normalize(term, caseSensitive), CaseSensitive: caseSensitive}
}

func NewSubsequenceMatcher(term string, caseSensitive bool) Matcher {
	return Matcher{Mode: MatchSubsequence, Term: normalize(term, caseSensitive), CaseSensitive: caseSensitive}
}

func NewSubstringMatcher(term string, caseSensitive bool) Matcher {
	return Matcher{Mode: MatchSubstring, Term: normalize(term, caseSensitive), CaseSensitive: caseSensitive}
}

// NewWildcardMatcher matches whole names against pattern, where * matches
// any run of characters and everything else is literal. "*" matches every
// name; a pattern without * is an exact comparison.
func NewWildcardMatcher(pattern string, caseSensitive bool) (Matcher, error) {
	folded := normalize(pattern, caseSensitive)
	re, err := WildcardToRegexp(folded)
	if err != nil {
		return Matcher{}, err
	}
	return Matcher{Mode: MatchWildcard, Term: folded, CaseSensitive: caseSensitive, pattern: re}, nil
}

// WildcardToRegexp translates a wildcard pattern to an anchored regexp.
func WildcardToRegexp(pattern string) (*regexp.Regexp, error) {
	if !utf8.ValidString(pattern) {
		return nil, fmt.Errorf("%w: pattern is not valid UTF-8", ErrInvalidQuery)
	}
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	expr := "^(?s:" + strings.Join(parts, ".*") + ")$"
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidQuery, pattern, err)
	}
	return re, nil
}

// Match reports whether item's name satisfies the matcher.
func (m Matcher) Match(item Item) bool {
	name := item.name
	if !m.CaseSensitive {
		name = fold(name)
	}
	return m.MatchName(name)
}

// MatchName evaluates the matcher against an already normalized name.
func (m Matcher) MatchName(name string) bool {
	switch m.Mode {
	case MatchPrefix:
		return strings.HasPrefix(name, m.Term)
	case MatchSubstring:
		return strings.Contains(name, m.Term)
	case MatchWildcard:
		return m.pattern != nil && m.pattern.MatchString(name)
	default:
		return isSubsequence(name, m.Term)
	}
}

// MatchString normalizes s according to the matcher's case rule and tests it.
func (m Matcher) MatchString(s string) bool {
	return m.MatchName(normalize(s, m.CaseSensitive))
}

func normalize(s string, caseSensitive bool) string {
	if caseSensitive {
		return s
	}
	return fold(s)
}

// fold applies Unicode case folding. A new Caser is used per call because
// Casers are stateful.
func fold(s string) string {
	return cases.Fold().String(s)
}

// isSubsequence reports whether every rune of term occurs in s in order.
func isSubsequence(s, term string) bool {
	if term == "" {
		return true
	}
	want, size := utf8.DecodeRuneInString(term)
	for _, r := range s {
		if r != want {
			continue
		}
		term = term[size:]
		if term == "" {
			return true
		}
		want, size = utf8.DecodeRuneInString(term)
	}
	return false
}

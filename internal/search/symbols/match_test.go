package symbols

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name())
	}
	return out
}

func itemsNamed(ns ...string) []Item {
	items := make([]Item, 0, len(ns))
	for i, n := range ns {
		items = append(items, NewItem(KindFunction, n, nil, 0, uint64(i+1), 1))
	}
	return items
}

func filter(t *testing.T, m Matcher, ns ...string) []string {
	t.Helper()
	var out []string
	for _, it := range itemsNamed(ns...) {
		if m.Match(it) {
			out = append(out, it.Name())
		}
	}
	return out
}

func TestQueryMatcherModeSelection(t *testing.T) {
	tests := []struct {
		term       string
		prefixOnly bool
		want       MatchMode
	}{
		{"get", false, MatchSubsequence},
		{"get", true, MatchPrefix},
		{"g*t", false, MatchWildcard},
		{"g*t", true, MatchWildcard},
	}
	for _, tt := range tests {
		m, err := NewQueryMatcher(tt.term, tt.prefixOnly, false)
		require.NoError(t, err)
		assert.Equal(t, tt.want, m.Mode, "term %q prefixOnly=%v", tt.term, tt.prefixOnly)
	}
}

func TestWildcardQuery(t *testing.T) {
	m, err := NewQueryMatcher("ge*By", false, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"getBytes", "GetBy"}, filter(t, m, "getBytes", "GetBy", "other"))

	sensitive, err := NewQueryMatcher("ge*By", false, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"getBytes"}, filter(t, sensitive, "getBytes", "GetBy", "other"))
}

func TestWildcardQueryPrefixAnchoring(t *testing.T) {
	anywhere, err := NewQueryMatcher("*_df", false, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"read_df", "read_df_fast"}, filter(t, anywhere, "read_df", "read_df_fast", "df_read"))

	anchored, err := NewQueryMatcher("re*df", true, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"read_df", "read_df_fast"}, filter(t, anchored, "read_df", "read_df_fast", "xread_df"))
}

func TestWildcardMatcherFullMatch(t *testing.T) {
	all, err := NewWildcardMatcher("*", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "Bb", "c.d"}, filter(t, all, "a", "Bb", "c.d"))

	exact, err := NewWildcardMatcher("mean", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"mean"}, filter(t, exact, "mean", "means", "xmean", "Mean"))
}

func TestWildcardEscapesMetacharacters(t *testing.T) {
	m, err := NewWildcardMatcher("as.data.*", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"as.data.frame"}, filter(t, m, "as.data.frame", "asXdataYframe"))

	brackets, err := NewWildcardMatcher("[[*(", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"[[.foo("}, filter(t, brackets, "[[.foo(", "foo"))
}

func TestWildcardInvalidPattern(t *testing.T) {
	_, err := NewWildcardMatcher("bad\xff*", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidQuery))
}

func TestPrefixQuery(t *testing.T) {
	m, err := NewQueryMatcher("get", true, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"getBytes", "GETX"}, filter(t, m, "getBytes", "GETX", "forget"))

	sensitive, err := NewQueryMatcher("get", true, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"getBytes"}, filter(t, sensitive, "getBytes", "GETX", "forget"))
}

func TestSubsequenceQuery(t *testing.T) {
	m, err := NewQueryMatcher("gtb", false, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"getBytes"}, filter(t, m, "getBytes", "byte"))

	fuzzy, err := NewQueryMatcher("gsb", false, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"getSomeBytes"}, filter(t, fuzzy, "getSomeBytes"))

	sensitive, err := NewQueryMatcher("gsb", false, true)
	require.NoError(t, err)
	assert.Empty(t, filter(t, sensitive, "getSomeBytes"))
}

func TestSubstringMatcher(t *testing.T) {
	m := NewSubstringMatcher("Byte", false)
	assert.Equal(t, []string{"getBytes", "byte"}, filter(t, m, "getBytes", "byte", "gtb"))
}

func TestPrefixImpliesSubsequence(t *testing.T) {
	candidates := []string{"getBytes", "get", "g", "", "GetSomething", "über", "Über"}
	terms := []string{"", "g", "ge", "get", "getB", "Ge", "ü"}
	for _, caseSensitive := range []bool{true, false} {
		for _, name := range candidates {
			item := NewItem(KindFunction, name, nil, 0, 1, 1)
			for _, term := range terms {
				if item.NameStartsWith(term, caseSensitive) {
					assert.True(t, item.NameIsSubsequence(term, caseSensitive),
						"name=%q term=%q caseSensitive=%v", name, term, caseSensitive)
				}
			}
		}
	}
}

func TestNewMatcherModes(t *testing.T) {
	for _, mode := range []MatchMode{MatchPrefix, MatchSubsequence, MatchSubstring, MatchWildcard} {
		m, err := NewMatcher(mode, "x", true)
		require.NoError(t, err)
		assert.Equal(t, mode, m.Mode)
	}
	_, err := NewMatcher(MatchMode(42), "x", true)
	assert.True(t, errors.Is(err, ErrInvalidQuery))
}

func TestParseMatchMode(t *testing.T) {
	tests := map[string]MatchMode{
		"":          MatchSubsequence,
		"fuzzy":     MatchSubsequence,
		"PREFIX":    MatchPrefix,
		"contains":  MatchSubstring,
		"wildcard":  MatchWildcard,
		"glob":      MatchWildcard,
		"substring": MatchSubstring,
	}
	for in, want := range tests {
		got, err := ParseMatchMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMatchMode("regex")
	assert.Error(t, err)
}

func TestMatchString(t *testing.T) {
	m := NewPrefixMatcher("Std", false)
	assert.True(t, m.MatchString("stdev"))
	assert.False(t, m.MatchString("sd"))
}

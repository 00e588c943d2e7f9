package symbols

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rindex/internal/rlang"
)

const sample = `library(stats)

f <- function(x, y) {}

getBytes <- function(con, n = 1L) {
  helper <- function() NULL
  readBin(con, "raw", n)
}

setClass("Person", representation(name = "character"))
setMethod("show", "Person", function(object) cat(object@name))
`

func TestNewSourceIndexFunction(t *testing.T) {
	idx, err := NewSourceIndex("a.R", "\n\nf <- function(x, y) {}\n")
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())

	item := idx.Items()[0]
	assert.Equal(t, KindFunction, item.Kind())
	assert.Equal(t, "f", item.Name())
	assert.Equal(t, []MethodParam{{Name: "x"}, {Name: "y"}}, item.Signature())
	assert.Equal(t, 3, item.Line())
	assert.Equal(t, "a.R", item.Context())
}

func TestNewSourceIndexItems(t *testing.T) {
	idx, err := NewSourceIndex("sample.R", sample)
	require.NoError(t, err)

	assert.Equal(t, "sample.R", idx.Context())
	assert.Equal(t, []string{"f", "getBytes", "helper", "Person", "show"}, names(idx.Items()))
	assert.Equal(t, []string{"stats"}, idx.InferredPackages())

	items := idx.Items()
	assert.True(t, items[3].IsClass())
	assert.True(t, items[4].IsMethod())
	assert.Equal(t, 1, items[2].BraceLevel())
}

func TestNewSourceIndexExtractionFailure(t *testing.T) {
	idx, err := NewSourceIndex("bad.R", "x <- 'unterminated\n")
	require.Error(t, err)
	assert.Nil(t, idx)
	assert.True(t, errors.Is(err, rlang.ErrUnterminatedString))
	assert.Contains(t, err.Error(), "bad.R")
}

type stubExtractor struct {
	res *rlang.Result
	err error
}

func (s stubExtractor) Extract(string) (*rlang.Result, error) {
	return s.res, s.err
}

func TestNewSourceIndexWithExtractor(t *testing.T) {
	ex := stubExtractor{res: &rlang.Result{
		Definitions: []rlang.Definition{
			{Kind: rlang.DefinitionClass, Name: "Zed", Line: 9, Column: 2},
			{Kind: rlang.DefinitionFunction, Name: "alpha", Line: 1, Column: 1},
		},
	}}
	idx, err := NewSourceIndexWith("buf-1", "ignored", ex)
	require.NoError(t, err)
	// Discovery order is kept, not re-sorted.
	assert.Equal(t, []string{"Zed", "alpha"}, names(idx.Items()))

	boom := errors.New("boom")
	_, err = NewSourceIndexWith("buf-2", "ignored", stubExtractor{err: boom})
	assert.True(t, errors.Is(err, boom))
}

func TestSearchStampsContext(t *testing.T) {
	idx, err := NewSourceIndex("sample.R", sample)
	require.NoError(t, err)

	own := idx.Search(func(it Item) bool { return it.IsFunction() }, "", nil)
	require.Len(t, own, 3)
	for _, it := range own {
		assert.Equal(t, "sample.R", it.Context())
	}

	other := idx.Search(func(it Item) bool { return it.IsFunction() }, "/abs/sample.R", nil)
	for _, it := range other {
		assert.Equal(t, "/abs/sample.R", it.Context())
	}

	// The index itself is untouched by stamping.
	assert.Equal(t, "sample.R", idx.Items()[0].Context())
}

func TestSearchAppendsToSink(t *testing.T) {
	idx, err := NewSourceIndex("sample.R", sample)
	require.NoError(t, err)

	sink := []Item{NewItem(KindClass, "Existing", nil, 0, 1, 1)}
	sink, err = idx.SearchTerm("get", "", true, false, sink)
	require.NoError(t, err)
	assert.Equal(t, []string{"Existing", "getBytes"}, names(sink))
}

func TestSearchTermModes(t *testing.T) {
	idx, err := NewSourceIndex("sample.R", sample)
	require.NoError(t, err)

	tests := []struct {
		name          string
		term          string
		prefixOnly    bool
		caseSensitive bool
		want          []string
	}{
		{"subsequence", "gtb", false, false, []string{"getBytes"}},
		{"subsequence case sensitive", "gtb", false, true, nil},
		{"prefix", "he", true, false, []string{"helper"}},
		{"prefix miss", "elp", true, false, nil},
		{"wildcard", "*o*", false, false, []string{"Person", "show"}},
		{"wildcard prefix", "s*", true, false, []string{"show"}},
		{"empty term matches all", "", false, false, []string{"f", "getBytes", "helper", "Person", "show"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.SearchTerm(tt.term, "", tt.prefixOnly, tt.caseSensitive, nil)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestSearchDeterministic(t *testing.T) {
	idx, err := NewSourceIndex("sample.R", sample)
	require.NoError(t, err)

	first, err := idx.SearchTerm("e", "ctx", false, false, nil)
	require.NoError(t, err)
	second, err := idx.SearchTerm("e", "ctx", false, false, nil)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.True(t, first[i].Equal(second[i]))
	}
}

func TestNewSourceIndexFromItems(t *testing.T) {
	items := []Item{NewItem(KindFunction, "a", nil, 0, 1, 1).WithContext("old")}
	idx := NewSourceIndexFromItems("new", items)
	assert.Equal(t, "new", idx.Items()[0].Context())
	assert.Equal(t, "old", items[0].Context())
}

package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIndexDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "R/utils.R", "helper <- function(x) x\n")
	writeFile(t, root, "R/model.r", "fit <- function(d) d\r\nlibrary(stats)\r\n")
	writeFile(t, root, "R/broken.R", "x <- 'unterminated\n")
	writeFile(t, root, "R/generated/out.R", "skipped <- function() 1\n")
	writeFile(t, root, "renv/library/pkg.R", "vendored <- function() 1\n")
	writeFile(t, root, "notes.txt", "nothing <- function() 1\n")
	writeFile(t, root, ".gitignore", "R/generated/\n")

	filter, err := NewFileFilter(root, nil)
	require.NoError(t, err)

	ws := New(nil, nil)
	stats, err := ws.IndexDir(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, ScanStats{Files: 2, Items: 2, Failed: 1}, stats)

	abs, err := filepath.Abs(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(abs, "R", "model.r"),
		filepath.Join(abs, "R", "utils.R"),
	}, ws.Contexts())

	results, err := ws.Search(Query{Term: "fit"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Line)
}

func TestIndexDirCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.R", "a <- function() 1\n")

	filter, err := NewFileFilter(root, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = New(nil, nil).IndexDir(ctx, filter)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.tmp.R\nbuild/\n")

	filter, err := NewFileFilter(root, []string{"R/**/*.R", "tests/**/*.R"})
	require.NoError(t, err)

	tests := []struct {
		rel  string
		want bool
	}{
		{"R/a.R", true},
		{"R/sub/b.R", true},
		{"tests/testthat/test-a.R", true},
		{"inst/c.R", false},
		{"R/scratch.tmp.R", false},
		{"R/.git/x.R", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, filter.Include(filepath.Join(root, tt.rel)), tt.rel)
	}

	assert.True(t, filter.SkipDir(filepath.Join(root, "build")))
	assert.True(t, filter.SkipDir(filepath.Join(root, ".git")))
	assert.False(t, filter.SkipDir(filepath.Join(root, "R")))
	assert.False(t, filter.Include(filepath.Join(filepath.Dir(root), "outside.R")))
	assert.False(t, filter.Contains(filepath.Dir(root)))
}

func TestFileFilterInvalidPattern(t *testing.T) {
	_, err := NewFileFilter(t.TempDir(), []string{"[unclosed"})
	assert.Error(t, err)
}

func TestNormalizeNewlines(t *testing.T) {
	assert.Equal(t, "a\nb\nc\n", normalizeNewlines("a\r\nb\rc\n"))
}

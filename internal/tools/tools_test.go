package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rindex/internal/mcp"
	"rindex/internal/registry"
	"rindex/internal/workspace"
)

func newServer(t *testing.T) (*mcp.Server, string) {
	t.Helper()

	reg := registry.New()
	ws := workspace.New(reg, nil)
	path := t.TempDir() + "/a.R"
	_, err := ws.Update(path, "library(stats)\ngetBytes <- function(con, n) NULL\nsetClass(\"Person\", representation(name = \"character\"))\n")
	require.NoError(t, err)

	reg.AddCompletions("stats", registry.Completions{
		Exports:   []string{"sd", "uspop"},
		Types:     []registry.ExportType{registry.ExportFunction, registry.ExportData},
		Functions: map[string][]string{"sd": {"x", "na.rm"}},
	})

	server := mcp.NewServer("rindex", "test", nil)
	RegisterAll(server, ws, reg)
	return server, path
}

// call runs one tools/call round trip and returns the result.
func call(t *testing.T, server *mcp.Server, name string, args map[string]any) mcp.ToolsCallResult {
	t.Helper()

	req, err := json.Marshal(mcp.Request{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  mcp.ToolsCallParams{Name: name, Arguments: args},
	})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, server.Run(context.Background(), bytes.NewReader(append(req, '\n')), &out))

	var resp struct {
		Result mcp.ToolsCallResult `json:"result"`
		Error  *mcp.Error          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Nil(t, resp.Error)
	return resp.Result
}

func TestRegisterAll(t *testing.T) {
	server, _ := newServer(t)

	var names []string
	for _, tool := range server.Tools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"find_symbol", "list_defs_in_file", "list_packages", "package_exports"}, names)
}

func TestFindSymbol(t *testing.T) {
	server, path := newServer(t)

	res := call(t, server, "find_symbol", map[string]any{"name": "gtb"})
	require.False(t, res.IsError)

	var payload FindSymbolResult
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &payload))
	require.Len(t, payload.Results, 1)
	assert.Equal(t, "getBytes", payload.Results[0].Name)
	assert.Equal(t, path, payload.Results[0].Context)
	assert.Equal(t, 2, payload.Results[0].Line)
	assert.Equal(t, 50, payload.Query.Limit)
}

func TestFindSymbolLibraries(t *testing.T) {
	server, _ := newServer(t)

	res := call(t, server, "find_symbol", map[string]any{"name": "stats::sd"})
	var payload FindSymbolResult
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &payload))
	require.Len(t, payload.Results, 1)
	assert.Equal(t, "sd", payload.Results[0].Name)
	assert.Equal(t, "stats", payload.Results[0].Package)
}

func TestFindSymbolRequiresName(t *testing.T) {
	server, _ := newServer(t)

	res := call(t, server, "find_symbol", map[string]any{})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "name is required")
}

func TestListDefsInFile(t *testing.T) {
	server, path := newServer(t)

	res := call(t, server, "list_defs_in_file", map[string]any{"path": path})
	var payload ListDefsResult
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &payload))
	assert.True(t, payload.Indexed)
	require.Len(t, payload.Results, 2)
	assert.Equal(t, "Person", payload.Results[1].Name)
	assert.Equal(t, "class", payload.Results[1].Kind)

	res = call(t, server, "list_defs_in_file", map[string]any{"path": "/nowhere.R"})
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &payload))
	assert.False(t, payload.Indexed)
	assert.Empty(t, payload.Results)
}

func TestPackageTools(t *testing.T) {
	server, _ := newServer(t)

	res := call(t, server, "list_packages", nil)
	var packages []PackageStatus
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &packages))
	assert.Equal(t, []PackageStatus{{Name: "stats", Resolved: true, Exports: 2}}, packages)

	res = call(t, server, "package_exports", map[string]any{"package": "stats"})
	var exports []Export
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &exports))
	assert.Equal(t, []Export{
		{Name: "sd", Type: "function", Args: []string{"x", "na.rm"}},
		{Name: "uspop", Type: "data"},
	}, exports)

	res = call(t, server, "package_exports", map[string]any{"package": "dplyr"})
	assert.True(t, res.IsError)
	assert.True(t, strings.Contains(res.Content[0].Text, "not resolved"))
}

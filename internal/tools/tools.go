// Package tools exposes workspace search and package completions as MCP
// tools.
package tools

import (
	"encoding/json"
	"fmt"

	"rindex/internal/mcp"
	"rindex/internal/registry"
	"rindex/internal/workspace"
)

// Registry is the part of the completions registry the tools read.
type Registry interface {
	InferredPackages() []string
	LookupCompletions(pkg string) (registry.Completions, bool)
}

// RegisterAll registers all available tools on the MCP server
func RegisterAll(server *mcp.Server, ws *workspace.Workspace, reg Registry) {
	registerFindSymbol(server, ws)
	registerListDefsInFile(server, ws)
	registerPackageTools(server, reg)
}

// jsonResult serializes v as the single text block of a tool result
func jsonResult(v any) (*mcp.ToolsCallResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.TextResult(string(data)), nil
}

func requiredString(args map[string]any, key string) (string, error) {
	s, ok := args[key].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}

func optionalBool(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

// optionalInt reads a JSON number, which decodes as float64.
func optionalInt(args map[string]any, key string, def int) int {
	if f, ok := args[key].(float64); ok {
		return int(f)
	}
	return def
}

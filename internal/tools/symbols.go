package tools

import (
	"context"
	"fmt"
	"path/filepath"

	"rindex/internal/mcp"
	"rindex/internal/registry"
	"rindex/internal/workspace"
)

// FindSymbolResult is the payload of find_symbol
type FindSymbolResult struct {
	Query   workspace.Query    `json:"query"`
	Results []workspace.Result `json:"results"`
}

// ListDefsResult is the payload of list_defs_in_file
type ListDefsResult struct {
	Path    string             `json:"path"`
	Indexed bool               `json:"indexed"`
	Results []workspace.Result `json:"results"`
}

// PackageStatus is one entry of list_packages
type PackageStatus struct {
	Name     string `json:"name"`
	Resolved bool   `json:"resolved"`
	Exports  int    `json:"exports"`
}

func registerFindSymbol(server *mcp.Server, ws *workspace.Workspace) {
	tool := mcp.Tool{
		Name: "find_symbol",
		Description: "Find R functions, S4 methods and classes by name across the indexed files. " +
			"Plain terms match as a fuzzy subsequence, terms with * as wildcards, and pkg::term searches package exports.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"name": {
					Type:        "string",
					Description: "Name, fuzzy pattern, wildcard pattern or pkg::name",
				},
				"prefix_only": {
					Type:        "boolean",
					Description: "Match only at the start of names",
				},
				"case_sensitive": {
					Type:        "boolean",
					Description: "Case-sensitive matching (default: false)",
				},
				"include_libraries": {
					Type:        "boolean",
					Description: "Also search exports of packages the code loads",
				},
				"limit": {
					Type:        "number",
					Description: "Maximum number of results (default: 50)",
				},
			},
			Required: []string{"name"},
		},
	}

	handler := func(_ context.Context, args map[string]any) (*mcp.ToolsCallResult, error) {
		name, err := requiredString(args, "name")
		if err != nil {
			return nil, err
		}

		q := workspace.Query{
			Term:             name,
			PrefixOnly:       optionalBool(args, "prefix_only"),
			CaseSensitive:    optionalBool(args, "case_sensitive"),
			IncludeLibraries: optionalBool(args, "include_libraries"),
			Rank:             true,
			Limit:            optionalInt(args, "limit", 50),
		}
		results, err := ws.Search(q)
		if err != nil {
			return nil, fmt.Errorf("searching symbols: %w", err)
		}
		if results == nil {
			results = []workspace.Result{}
		}

		return jsonResult(FindSymbolResult{Query: q, Results: results})
	}

	server.RegisterTool(tool, handler)
}

func registerListDefsInFile(server *mcp.Server, ws *workspace.Workspace) {
	tool := mcp.Tool{
		Name:        "list_defs_in_file",
		Description: "List the functions, methods and classes defined in an indexed R file, in source order.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"path": {
					Type:        "string",
					Description: "File path to list definitions for",
				},
			},
			Required: []string{"path"},
		},
	}

	handler := func(_ context.Context, args map[string]any) (*mcp.ToolsCallResult, error) {
		path, err := requiredString(args, "path")
		if err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}

		result := ListDefsResult{Path: abs, Results: []workspace.Result{}}
		if idx, ok := ws.Index(abs); ok {
			result.Indexed = true
			for _, it := range idx.Items() {
				result.Results = append(result.Results, workspace.ResultFromItem(it))
			}
		}
		return jsonResult(result)
	}

	server.RegisterTool(tool, handler)
}

func registerPackageTools(server *mcp.Server, reg Registry) {
	server.RegisterTool(mcp.Tool{
		Name:        "list_packages",
		Description: "List the packages the indexed code loads or references, and whether their exports are known.",
		InputSchema: mcp.InputSchema{Type: "object"},
	}, func(_ context.Context, _ map[string]any) (*mcp.ToolsCallResult, error) {
		packages := []PackageStatus{}
		for _, name := range reg.InferredPackages() {
			c, ok := reg.LookupCompletions(name)
			packages = append(packages, PackageStatus{Name: name, Resolved: ok, Exports: len(c.Exports)})
		}
		return jsonResult(packages)
	})

	server.RegisterTool(mcp.Tool{
		Name:        "package_exports",
		Description: "Return the exported objects of a package with their types and function arguments.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"package": {
					Type:        "string",
					Description: "Package name, e.g. stats",
				},
			},
			Required: []string{"package"},
		},
	}, func(_ context.Context, args map[string]any) (*mcp.ToolsCallResult, error) {
		pkg, err := requiredString(args, "package")
		if err != nil {
			return nil, err
		}
		c, ok := reg.LookupCompletions(pkg)
		if !ok {
			return nil, fmt.Errorf("exports of %s are not resolved yet", pkg)
		}
		return jsonResult(exportsOf(c))
	})
}

// Export is one entry of package_exports
type Export struct {
	Name string   `json:"name"`
	Type string   `json:"type"`
	Args []string `json:"args,omitempty"`
}

func exportsOf(c registry.Completions) []Export {
	out := make([]Export, 0, len(c.Exports))
	for _, name := range c.Exports {
		out = append(out, Export{
			Name: name,
			Type: c.TypeOf(name).String(),
			Args: c.Functions[name],
		})
	}
	return out
}

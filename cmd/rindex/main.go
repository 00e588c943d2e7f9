// rindex indexes R sources and searches their functions, methods and
// classes, optionally together with the exports of referenced packages.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rindex/internal/config"
	"rindex/internal/logging"
	"rindex/internal/registry"
	"rindex/internal/resolver"
	"rindex/internal/workspace"
)

var logger *slog.Logger

const version = "0.1.0"

func main() {
	logger = logging.Default("rindex")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "index":
		runIndex(os.Args[2:])

	case "search":
		runSearch(os.Args[2:])

	case "packages":
		runPackages(os.Args[2:])

	case "resolve":
		runResolve(os.Args[2:])

	case "serve":
		runServe(os.Args[2:])

	case "mcp":
		runMCP(os.Args[2:])

	case "status":
		runStatus()

	case "stop":
		runStop()

	case "version":
		fmt.Printf("rindex v%s\n", version)

	case "help", "-h", "--help":
		printUsage()

	default:
		logger.Error("unknown command", "command", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// openRegistry returns a registry backed by the completions cache when one
// is configured. A cache that cannot be opened is logged and skipped.
func openRegistry(ctx context.Context) *registry.Registry {
	dbConfig := config.LoadDatabaseConfigFromEnv()
	if !dbConfig.Enabled() {
		return registry.New()
	}

	cfg, err := dbConfig.ToDBConfig()
	if err != nil {
		logger.Warn("completions cache disabled", "error", err)
		return registry.New()
	}
	cache, err := registry.OpenSQLCache(ctx, cfg)
	if err != nil {
		logger.Warn("opening completions cache failed", "database", dbConfig.String(), "error", err)
		return registry.New()
	}
	reg, err := registry.NewWithCache(ctx, cache, logger)
	if err != nil {
		cache.Close()
		logger.Warn("loading completions cache failed", "database", dbConfig.String(), "error", err)
		return registry.New()
	}
	logger.Debug("using completions cache", "database", dbConfig.String())
	return reg
}

// indexPath builds a workspace over path.
func indexPath(ctx context.Context, reg *registry.Registry, path string) *workspace.Workspace {
	absPath, err := filepath.Abs(path)
	if err != nil {
		logger.Error("invalid path", "error", err)
		os.Exit(1)
	}

	wsCfg := config.LoadWorkspaceConfigFromEnv()
	filter, err := workspace.NewFileFilter(absPath, wsCfg.Include)
	if err != nil {
		logger.Error("invalid include patterns", "error", err)
		os.Exit(1)
	}

	ws := workspace.New(reg, logger)
	if _, err := ws.IndexDir(ctx, filter); err != nil {
		logger.Error("indexing failed", "path", absPath, "error", err)
		os.Exit(1)
	}
	return ws
}

func newResolver(reg *registry.Registry) *resolver.Resolver {
	cfg := config.LoadResolverConfigFromEnv()
	if !cfg.Available() {
		logger.Warn("Rscript not found, package exports will not be resolved", "rscript", cfg.Rscript)
		return nil
	}
	return &resolver.Resolver{
		Registry: reg,
		Source:   resolver.RscriptSource{Binary: cfg.Rscript},
		Workers:  cfg.Workers,
		Interval: cfg.Interval,
		Logger:   logger,
	}
}

func runIndex(args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print items as JSON")
	fs.Parse(args)

	path := "."
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	start := time.Now()
	ws := indexPath(context.Background(), registry.New(), path)

	var results []workspace.Result
	for _, ctx := range ws.Contexts() {
		idx, _ := ws.Index(ctx)
		for _, it := range idx.Items() {
			results = append(results, workspace.ResultFromItem(it))
		}
	}

	printResults(results, *asJSON)
	logger.Info("indexing complete",
		"files", len(ws.Contexts()),
		"items", len(results),
		"duration", time.Since(start).Round(time.Millisecond))
}

func runSearch(args []string) {
	searchCfg := config.LoadSearchConfigFromEnv()

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	prefix := fs.Bool("prefix", searchCfg.PrefixOnly(), "Match only at the start of names")
	caseSensitive := fs.Bool("case", searchCfg.CaseSensitive, "Case-sensitive matching")
	libs := fs.Bool("libs", false, "Include exports of referenced packages")
	rank := fs.Bool("rank", false, "Order results by fuzzy score")
	limit := fs.Int("limit", searchCfg.Limit, "Maximum results (0 = unlimited)")
	remote := fs.Bool("remote", false, "Query the running daemon instead of indexing")
	asJSON := fs.Bool("json", false, "Print results as JSON")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: rindex search [flags] <term> [path]")
		os.Exit(1)
	}

	q := workspace.Query{
		Term:             fs.Arg(0),
		PrefixOnly:       *prefix,
		CaseSensitive:    *caseSensitive,
		IncludeLibraries: *libs,
		Rank:             *rank,
		Limit:            *limit,
	}

	var (
		results []workspace.Result
		err     error
	)
	if *remote {
		results, err = newClient().Search(q)
	} else {
		path := "."
		if fs.NArg() > 1 {
			path = fs.Arg(1)
		}
		ctx := context.Background()
		var reg *registry.Registry
		if *libs || strings.Contains(q.Term, "::") {
			reg = openRegistry(ctx)
			defer reg.Close()
		} else {
			reg = registry.New()
		}
		results, err = indexPath(ctx, reg, path).Search(q)
	}
	if err != nil {
		logger.Error("search failed", "term", q.Term, "error", err)
		os.Exit(1)
	}

	printResults(results, *asJSON)
}

func runPackages(args []string) {
	fs := flag.NewFlagSet("packages", flag.ExitOnError)
	fs.Parse(args)

	path := "."
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	ctx := context.Background()
	reg := openRegistry(ctx)
	defer reg.Close()
	indexPath(ctx, reg, path)

	for _, pkg := range reg.InferredPackages() {
		c, ok := reg.LookupCompletions(pkg)
		if ok {
			fmt.Printf("%s\t%d exports\n", pkg, len(c.Exports))
		} else {
			fmt.Printf("%s\tunresolved\n", pkg)
		}
	}
}

func runResolve(args []string) {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	timeout := fs.Duration("timeout", 5*time.Minute, "Give up after this long")
	fs.Parse(args)

	path := "."
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	reg := openRegistry(ctx)
	defer reg.Close()
	indexPath(ctx, reg, path)

	res := newResolver(reg)
	if res == nil {
		os.Exit(1)
	}

	start := time.Now()
	n, err := res.ResolvePending(ctx)
	if err != nil {
		logger.Error("resolving interrupted", "error", err)
		os.Exit(1)
	}
	logger.Info("resolve complete",
		"resolved", n,
		"pending", len(reg.UnindexedPackages()),
		"duration", time.Since(start).Round(time.Millisecond))

	for _, pkg := range res.Failed() {
		fmt.Printf("%s\tfailed\n", pkg)
	}
}

func printResults(results []workspace.Result, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if results == nil {
			results = []workspace.Result{}
		}
		if err := enc.Encode(results); err != nil {
			logger.Error("encoding results failed", "error", err)
			os.Exit(1)
		}
		return
	}
	for _, r := range results {
		fmt.Println(r.String())
	}
}

func printUsage() {
	fmt.Println(`rindex - R source symbol index

Usage:
  rindex index [--json] [path]              Index R files and list their items
  rindex search [options] <term> [path]     Search items (and package exports)
  rindex packages [path]                    List packages referenced by the source
  rindex resolve [--timeout d] [path]       Resolve package exports with Rscript
  rindex serve [path...]                    Watch paths and answer queries
  rindex mcp [--watch=false] [path...]      Serve search tools over MCP on stdio
  rindex status                             Show daemon status
  rindex stop                               Stop the daemon
  rindex version                            Print version
  rindex help                               Show this help

Search Options:
  --prefix     Match only at the start of names
  --case       Case-sensitive matching
  --libs       Include exports of referenced packages
  --rank       Order results by fuzzy score
  --limit N    Maximum number of results
  --remote     Query the running daemon
  --json       Print results as JSON

Terms containing * are wildcards ("ge*By"); "pkg::term" searches the
exports of pkg only.

Environment Variables:
  RINDEX_MATCH_MODE          fuzzy (default) or prefix
  RINDEX_CASE_SENSITIVE      true/false [default: false]
  RINDEX_SEARCH_LIMIT        Default result limit [default: 0]
  RINDEX_INCLUDE             Comma-separated include globs [default: **/*.{R,r},**/.Rprofile]
  RINDEX_DEBOUNCE_MS         Watcher debounce [default: 300]
  RINDEX_RSCRIPT             Rscript executable [default: Rscript]
  RINDEX_RESOLVER_WORKERS    Concurrent Rscript processes [default: 2]
  RINDEX_RESOLVER_INTERVAL   Resolver pass interval [default: 30s]
  RINDEX_DB_TYPE             Completions cache: sqlite (default), postgres, none
  RINDEX_DB_PATH             SQLite cache path [default: user cache dir]
  RINDEX_DB_DSN              PostgreSQL connection string
  RINDEX_LOG_LEVEL           Log level (debug, info, warn, error) [default: info]
  RINDEX_LOG_FORMAT          Output format (text, json) [default: text]
  RINDEX_LOG_CALLER          Include file:line in logs [default: false]`)
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"rindex/internal/config"
	"rindex/internal/daemon"
	"rindex/internal/mcp"
	"rindex/internal/tools"
	"rindex/internal/workspace"
)

// runMCP serves the workspace tools on stdio. The roots stay watched for
// the lifetime of the session.
func runMCP(args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	watch := fs.Bool("watch", true, "Re-index files as they change")
	fs.Parse(args)

	roots := fs.Args()
	if len(roots) == 0 {
		roots = []string{"."}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := openRegistry(ctx)
	defer reg.Close()

	wsCfg := config.LoadWorkspaceConfigFromEnv()
	ws := workspace.New(reg, logger)

	d, err := daemon.New(ws, newResolver(reg), daemon.Config{
		DebounceMs: int(wsCfg.Debounce.Milliseconds()),
		Include:    wsCfg.Include,
	}, logger)
	if err != nil {
		logger.Error("failed to create daemon", "error", err)
		os.Exit(1)
	}
	for _, root := range roots {
		if err := d.AddRoot(ctx, root); err != nil {
			logger.Error("failed to index root", "root", root, "error", err)
			os.Exit(1)
		}
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	if *watch {
		go func() { done <- d.Run(sessionCtx) }()
	} else {
		done <- nil
	}

	server := mcp.NewServer("rindex", version, logger)
	tools.RegisterAll(server, ws, reg)

	logger.Info("serving MCP on stdio", "roots", roots, "tools", len(server.Tools()))
	if err := server.Run(sessionCtx, os.Stdin, os.Stdout); err != nil {
		logger.Error("mcp server error", "error", err)
	}

	cancel()
	if err := <-done; err != nil {
		logger.Error("watcher error", "error", err)
		os.Exit(1)
	}
}

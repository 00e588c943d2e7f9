package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rindex/internal/config"
	"rindex/internal/daemon"
	"rindex/internal/workspace"
)

func newClient() *daemon.IPCClient {
	return daemon.NewIPCClient(daemon.DefaultSocketPath())
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	socket := fs.String("socket", daemon.DefaultSocketPath(), "Unix socket to serve queries on")
	fs.Parse(args)

	roots := fs.Args()
	if len(roots) == 0 {
		roots = []string{"."}
	}

	client := daemon.NewIPCClient(*socket)
	if client.IsRunning() {
		logger.Error("daemon is already running", "socket", *socket)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := openRegistry(ctx)
	defer reg.Close()

	wsCfg := config.LoadWorkspaceConfigFromEnv()
	ws := workspace.New(reg, logger)

	d, err := daemon.New(ws, newResolver(reg), daemon.Config{
		DebounceMs: int(wsCfg.Debounce.Milliseconds()),
		SocketPath: *socket,
		Include:    wsCfg.Include,
	}, logger)
	if err != nil {
		logger.Error("failed to create daemon", "error", err)
		os.Exit(1)
	}

	for _, root := range roots {
		if err := d.AddRoot(ctx, root); err != nil {
			logger.Error("failed to watch root", "root", root, "error", err)
			os.Exit(1)
		}
	}

	if err := d.Run(ctx); err != nil {
		logger.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func runStop() {
	client := newClient()
	if !client.IsRunning() {
		logger.Error("daemon is not running")
		os.Exit(1)
	}

	if err := client.Stop(); err != nil {
		logger.Error("failed to stop daemon", "error", err)
		os.Exit(1)
	}

	logger.Info("daemon stopped")
}

func runStatus() {
	status, err := newClient().Status()
	if err != nil {
		logger.Info("daemon is not running")
		os.Exit(1)
	}

	// Print status as JSON to stdout (data output)
	data, _ := json.MarshalIndent(status, "", "  ")
	fmt.Println(string(data))
}

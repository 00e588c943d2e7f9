// Package resolver fills the completions registry in the background by
// asking R for the exports of every package that indexed source refers to.
package resolver

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"rindex/internal/logging"
	"rindex/internal/registry"
)

const (
	DefaultWorkers     = 2
	DefaultInterval    = 30 * time.Second
	DefaultMaxAttempts = 3
)

// Store is the part of the registry the resolver needs.
type Store interface {
	UnindexedPackages() []string
	AddCompletions(pkg string, c registry.Completions)
}

// Resolver resolves pending packages with a bounded worker pool.
type Resolver struct {
	Registry Store
	Source   Source
	Workers  int
	Interval time.Duration

	// MaxAttempts bounds how often a failing package is retried. Zero means
	// DefaultMaxAttempts.
	MaxAttempts int
	Logger      *slog.Logger

	mu       sync.Mutex
	failures map[string]int
}

// ResolvePending resolves every unindexed package once and returns how many
// were added to the registry. Packages that fail are logged and stay
// pending. The only error returned is ctx's.
func (r *Resolver) ResolvePending(ctx context.Context) (int, error) {
	logger := r.logger()
	pending := r.retryable(r.Registry.UnindexedPackages())
	if len(pending) == 0 {
		return 0, nil
	}
	logger.Debug("resolving packages", "count", len(pending))

	workers := r.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var resolved atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, pkg := range pending {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			start := time.Now()
			c, err := r.Source.Exports(gctx, pkg)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				attempts := r.recordFailure(pkg)
				logger.Warn("resolving package failed", "package", pkg, "attempt", attempts, "error", err)
				return nil
			}
			// Registry I/O happens outside any resolver lock.
			r.Registry.AddCompletions(pkg, c)
			resolved.Add(1)
			logger.Debug("resolved package", "package", pkg, "exports", len(c.Exports), "duration", time.Since(start))
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return int(resolved.Load()), err
}

// Run resolves pending packages immediately and then every Interval until
// ctx is cancelled.
func (r *Resolver) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := r.ResolvePending(ctx); err != nil {
			return
		} else if n > 0 {
			r.logger().Info("resolved packages", "count", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Failed returns the packages that reached MaxAttempts.
func (r *Resolver) Failed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for pkg, n := range r.failures {
		if n >= r.maxAttempts() {
			out = append(out, pkg)
		}
	}
	slices.Sort(out)
	return out
}

func (r *Resolver) retryable(pkgs []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := pkgs[:0]
	for _, pkg := range pkgs {
		if r.failures[pkg] < r.maxAttempts() {
			out = append(out, pkg)
		}
	}
	return out
}

func (r *Resolver) recordFailure(pkg string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failures == nil {
		r.failures = make(map[string]int)
	}
	r.failures[pkg]++
	return r.failures[pkg]
}

func (r *Resolver) maxAttempts() int {
	if r.MaxAttempts > 0 {
		return r.MaxAttempts
	}
	return DefaultMaxAttempts
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return logging.Nop()
}

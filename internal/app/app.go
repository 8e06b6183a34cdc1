// Package app assembles the long-running instance: usage store,
// provider registry, query orchestrator, frontend and the instance
// socket, with one teardown order.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/beamlauncher/beam/internal/config"
	"github.com/beamlauncher/beam/internal/frontend"
	"github.com/beamlauncher/beam/internal/gateway"
	"github.com/beamlauncher/beam/internal/provider"
	"github.com/beamlauncher/beam/internal/query"
	"github.com/beamlauncher/beam/internal/usage"
	"github.com/beamlauncher/beam/providers/apps"
	"github.com/beamlauncher/beam/providers/calc"
)

// ErrAlreadyRunning means another instance holds the instance lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

// builtinLoader builds the provider set. A reload rescans the
// application directories so newly installed entries appear without a
// restart.
type builtinLoader struct {
	appDirs []string
}

func (l *builtinLoader) LoadProviders() ([]provider.Provider, error) {
	return []provider.Provider{
		apps.New(l.appDirs...),
		calc.New(),
	}, nil
}

// App is the assembled instance. Create with New, run with Run.
type App struct {
	cfg      *config.Config
	lock     *gateway.InstanceLock
	store    *usage.Store
	registry *provider.Registry
	orch     *query.Orchestrator
	front    frontend.Frontend
	server   *gateway.Server
}

// Options adjusts assembly for the environment.
type Options struct {
	// ForcePlain selects the headless frontend even on a terminal.
	ForcePlain bool
}

// New acquires the instance lock and assembles all components. Returns
// ErrAlreadyRunning when the lock is held by another process; nothing
// is left behind in that case.
func New(cfg *config.Config, opts Options) (*App, error) {
	lock := gateway.NewInstanceLock(cfg.LockPath())
	acquired, err := lock.TryAcquire()
	if err != nil {
		return nil, fmt.Errorf("instance lock: %w", err)
	}
	if !acquired {
		return nil, ErrAlreadyRunning
	}

	store, err := usage.Open(cfg.DatabasePath(), cfg.Ranking.BoostCacheSize)
	if err != nil {
		_ = lock.Release()
		return nil, err
	}

	registry := provider.NewRegistry(&builtinLoader{appDirs: cfg.Paths.PluginDirs})
	if err := registry.Reload(); err != nil {
		_ = store.Close()
		_ = lock.Release()
		return nil, err
	}

	orch := query.NewOrchestrator(query.Config{
		ProviderTimeout: cfg.Query.ProviderTimeout,
		MaxResults:      cfg.Query.MaxResults,
		BoostWeight:     cfg.Ranking.BoostWeight,
	}, registry, store)

	front := frontend.New(frontend.Config{
		Output:     os.Stdout,
		ForcePlain: opts.ForcePlain,
	}, orch)

	app := &App{
		cfg:      cfg,
		lock:     lock,
		store:    store,
		registry: registry,
		orch:     orch,
		front:    front,
	}
	app.server = gateway.NewServer(cfg.SocketPath(), front)
	return app, nil
}

// Run starts the instance socket, the plugin watcher and the frontend,
// then blocks until the context is cancelled or the frontend exits.
// Teardown is ordered: frontend first, then the orchestrator, then the
// socket and the store.
func (a *App) Run(ctx context.Context) error {
	if _, err := os.Stat(a.cfg.RunningMarkerPath()); err == nil {
		slog.Warn("Previous instance did not shut down cleanly",
			slog.String("marker", a.cfg.RunningMarkerPath()))
	}
	if err := a.writeRunningMarker(); err != nil {
		slog.Warn("Failed to write running marker", slog.String("error", err.Error()))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group

	// The socket is remote control, not a prerequisite: a bind failure
	// leaves the instance running without it.
	g.Go(func() error {
		if err := a.server.ListenAndServe(); err != nil {
			slog.Warn("Instance socket unavailable, remote commands disabled",
				slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		err := provider.WatchDirs(ctx, a.cfg.Paths.PluginDirs, 0, a.registry.Reload)
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("Plugin watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	err := a.front.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	cancel()
	a.shutdown()
	_ = g.Wait()
	return err
}

// shutdown tears components down in dependency order.
func (a *App) shutdown() {
	a.orch.Close()

	if closeErr := a.server.Close(); closeErr != nil {
		slog.Warn("Gateway close failed", slog.String("error", closeErr.Error()))
	}
	if closeErr := a.store.Close(); closeErr != nil {
		slog.Warn("Store close failed", slog.String("error", closeErr.Error()))
	}

	if err := os.Remove(a.cfg.RunningMarkerPath()); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove running marker", slog.String("error", err.Error()))
	}
	if err := a.lock.Release(); err != nil {
		slog.Warn("Failed to release instance lock", slog.String("error", err.Error()))
	}

	slog.Info("Instance stopped")
}

// writeRunningMarker drops a pid file next to the database. Purely
// informational; the instance lock is what enforces exclusivity.
func (a *App) writeRunningMarker() error {
	return os.WriteFile(a.cfg.RunningMarkerPath(),
		[]byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

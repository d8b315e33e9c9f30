// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/rs/zerolog"
)

// MaintenanceTask is a long-running background job owned by the App, such as
// the value-log garbage collection loop of a cache store. Tasks run until the
// daemon context is cancelled.
type MaintenanceTask func(ctx context.Context) error

// App owns the long-lived runtime lifecycle (maintenance loops) and delegates
// server management to Manager.
type App struct {
	logger  zerolog.Logger
	manager Manager
	tasks   []namedTask
}

// namedTask pairs a maintenance task with a name for logging.
type namedTask struct {
	name string
	run  MaintenanceTask
}

// NewApp creates a new App orchestrator.
func NewApp(logger zerolog.Logger, manager Manager) *App {
	return &App{
		logger:  logger,
		manager: manager,
	}
}

// AddMaintenance registers a background task that runs for the daemon's
// lifetime. Tasks are best-effort: a failure is logged but never tears the
// servers down.
func (a *App) AddMaintenance(name string, task MaintenanceTask) {
	a.tasks = append(a.tasks, namedTask{name: name, run: task})
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	// Maintenance loops stop via ctx and never propagate their errors.
	for _, t := range a.tasks {
		t := t
		g.Go(func() error {
			if err := t.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error().
					Err(err).
					Str("event", "maintenance.failed").
					Str("task", t.name).
					Msg("maintenance task failed")
			}
			return nil
		})
	}

	// Main server lifecycle.
	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

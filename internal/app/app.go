// Package app provides the top-level application lifecycle for fxscalper.
// It wires the venue, control loop, storage, notifications and HTTP API
// from configuration and runs them until the context is cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/fxscalper/internal/config"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts every long-running task and blocks
// until ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("venue", a.cfg.Venue.Driver),
		slog.String("signals", a.cfg.Signals.Kind),
		slog.String("journal", a.cfg.Journal.Driver),
		slog.String("account", a.cfg.Accounts.Selected),
	)

	c, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	return a.serve(ctx, c)
}

func (a *App) serve(ctx context.Context, c *Components) error {
	g, ctx := errgroup.WithContext(ctx)

	if c.Hub != nil {
		g.Go(func() error { return c.Hub.Run(ctx) })
	}
	if c.Async != nil {
		g.Go(func() error { return c.Async.Run(ctx) })
	}
	if c.Server != nil {
		g.Go(func() error { return c.Server.Run(ctx) })
	}
	if c.Archiver != nil && a.cfg.Archive.Cron != "" {
		g.Go(func() error { return c.Archiver.RunCron(ctx, a.cfg.Archive.Cron) })
	}
	g.Go(func() error { return c.Bot.Run(ctx, a.cfg.Bot.Autostart) })

	err := g.Wait()
	a.logger.Info("application stopped", slog.Int("trades", c.Store.TotalTrades()))
	return err
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

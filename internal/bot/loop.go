package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/fxscalper/internal/domain"
	"github.com/alanyoungcy/fxscalper/internal/executor"
)

func (b *Bot) loop(done chan struct{}) {
	defer close(done)
	ctx := b.root

	for b.atBoundary() {
		err := b.iterate(ctx)
		if ctx.Err() != nil {
			continue
		}
		b.deps.Store.RecordIteration(b.now(), err)

		wait := b.cfg.PollInterval
		if err != nil {
			wait = b.cfg.ErrorCooldown
			b.logger.Error("iteration failed",
				slog.String("error", err.Error()),
				slog.Duration("cooldown", wait),
			)
			b.publish(ctx, domain.EventLoopError, map[string]string{"error": err.Error()})
		}
		b.sleep(ctx, wait)
	}
}

// atBoundary decides whether another iteration runs. When it returns false
// the loop task is marked finished in the same critical section, so a
// concurrent Start either cancels the stop or launches a fresh task.
func (b *Bot) atBoundary() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.wake:
	default:
	}
	if b.stopRequested || b.root.Err() != nil {
		b.running = false
		b.stopRequested = false
		b.deps.Store.SetBotState(domain.BotStateStopped)
		b.logger.Info("bot stopped")
		return false
	}
	return true
}

func (b *Bot) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-b.wake:
	case <-t.C:
	}
}

// iterate runs one pass. Failures of individual signals are logged and do
// not fail the iteration; a panic anywhere does.
func (b *Bot) iterate(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bot: iteration panic: %v", r)
		}
	}()

	strat := b.strategy.Load()

	venueStatus := domain.VenueDisconnected
	if b.deps.Venue.Probe(ctx) {
		venueStatus = domain.VenueConnected
	}
	b.deps.Store.SetVenueStatus(venueStatus)

	sigs, fetchErr := b.deps.Signals.Fetch(ctx)
	if fetchErr != nil {
		b.logger.WarnContext(ctx, "signal fetch failed",
			slog.String("source", b.deps.Signals.Name()),
			slog.String("error", fetchErr.Error()),
		)
		sigs = nil
	}
	b.deps.Store.ReplaceSignals(sigs)
	b.publish(ctx, domain.EventSignals, sigs)

	executed := 0
	for _, sig := range sigs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if b.handle(ctx, strat, sig) {
			executed++
		}
	}

	m := b.deps.Metrics.Recompute(ctx)
	b.logger.InfoContext(ctx, "iteration complete",
		slog.Int("signals", len(sigs)),
		slog.Int("executed", executed),
		slog.Int64("strategy_version", strat.cfg.Version),
		slog.String("venue", string(venueStatus)),
		slog.Int("total_trades", m.TotalTrades),
	)

	b.refreshNews(ctx)
	b.archive(ctx)
	if c, ok := b.deps.Claimer.(interface{ Cleanup() }); ok {
		c.Cleanup()
	}
	return nil
}

// handle takes one signal through validation, the filter chain, the
// claim and the executor. It reports whether an order was placed.
func (b *Bot) handle(ctx context.Context, strat *activeStrategy, sig domain.Signal) bool {
	log := b.logger.With(
		slog.String("symbol", sig.Symbol),
		slog.String("direction", string(sig.Direction)),
	)
	if err := sig.Validate(); err != nil {
		log.WarnContext(ctx, "invalid signal", slog.String("error", err.Error()))
		return false
	}

	if ok, by := strat.chain.Admit(ctx, sig); !ok {
		log.InfoContext(ctx, "signal filtered", slog.String("filter", by))
		return false
	}

	key := "signal:" + sig.Key()
	if b.deps.Claimer != nil {
		claimed, err := b.deps.Claimer.Claim(ctx, key, b.cfg.ClaimTTL)
		if err != nil {
			log.WarnContext(ctx, "signal claim failed", slog.String("error", err.Error()))
			return false
		}
		if !claimed {
			log.DebugContext(ctx, "signal already handled")
			return false
		}
	}

	// The claim is kept only for terminal outcomes, so a panicking executor
	// leaves the signal free for the next iteration.
	keep := false
	defer func() {
		if !keep {
			b.release(ctx, key)
		}
	}()

	out := b.deps.Executor.Execute(ctx, sig)
	switch out.Stage {
	case executor.StageExecuted, executor.StageRejected, executor.StageSymbolNotFound:
		keep = true
	}
	return out.Executed()
}

func (b *Bot) release(ctx context.Context, key string) {
	if b.deps.Claimer == nil {
		return
	}
	if err := b.deps.Claimer.Release(context.WithoutCancel(ctx), key); err != nil {
		b.logger.WarnContext(ctx, "signal claim release failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

func (b *Bot) refreshNews(ctx context.Context) {
	if b.deps.News == nil {
		return
	}
	now := b.now()
	if !b.lastNews.IsZero() && now.Sub(b.lastNews) < b.cfg.NewsInterval {
		return
	}
	b.lastNews = now

	items, err := b.deps.News.Fetch(ctx)
	if err != nil {
		b.logger.WarnContext(ctx, "news fetch failed", slog.String("error", err.Error()))
		items = nil
	}
	b.deps.Store.SetNews(items)
}

func (b *Bot) archive(ctx context.Context) {
	if b.deps.Archiver == nil || b.cfg.ArchiveInterval <= 0 {
		return
	}
	now := b.now()
	if !b.lastArchive.IsZero() && now.Sub(b.lastArchive) < b.cfg.ArchiveInterval {
		return
	}
	b.lastArchive = now

	if err := b.deps.Archiver.Archive(ctx); err != nil {
		b.logger.WarnContext(ctx, "ledger archive failed", slog.String("error", err.Error()))
	}
}

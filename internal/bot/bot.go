// Package bot runs the trading control loop: fetch signals, filter, execute,
// recompute metrics, refresh news, sleep. The loop is a managed task with
// cooperative start and stop observed at iteration boundaries.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/fxscalper/internal/domain"
	"github.com/alanyoungcy/fxscalper/internal/executor"
	"github.com/alanyoungcy/fxscalper/internal/filter"
	"github.com/alanyoungcy/fxscalper/internal/id"
	"github.com/alanyoungcy/fxscalper/internal/source"
	"github.com/alanyoungcy/fxscalper/internal/state"
)

// ErrClosed is returned by Start after Shutdown.
var ErrClosed = errors.New("bot: closed")

// Prober reports venue connectivity. It is implemented by *venue.Client.
type Prober interface {
	Probe(ctx context.Context) bool
}

// Executor submits one admitted signal.
type Executor interface {
	Execute(ctx context.Context, sig domain.Signal) executor.Outcome
}

// Recomputer refreshes performance metrics.
type Recomputer interface {
	Recompute(ctx context.Context) domain.PerformanceMetrics
}

// AccountSelector switches the active venue account.
type AccountSelector interface {
	Select(key string) error
	Selected() string
}

// Archiver writes a durable snapshot of the ledger.
type Archiver interface {
	Archive(ctx context.Context) error
}

// Config controls loop cadence.
type Config struct {
	PollInterval    time.Duration
	NewsInterval    time.Duration
	ErrorCooldown   time.Duration
	ArchiveInterval time.Duration
	ClaimTTL        time.Duration
	Strategy        domain.StrategyFlags
}

// DefaultConfig returns the standard cadence: poll every 30 minutes, news
// hourly, 60 seconds cooldown after a failed iteration.
func DefaultConfig() Config {
	return Config{
		PollInterval:  30 * time.Minute,
		NewsInterval:  time.Hour,
		ErrorCooldown: 60 * time.Second,
		ClaimTTL:      24 * time.Hour,
		Strategy:      domain.StrategyFlags{UseMultiTimeframe: true},
	}
}

// Deps are the collaborators the loop drives. News, Claimer, Archiver and
// Events are optional.
type Deps struct {
	Venue    Prober
	Signals  source.SignalSource
	News     source.NewsSource
	Executor Executor
	Metrics  Recomputer
	Store    *state.Store
	Accounts AccountSelector
	Filters  filter.Set
	Claimer  domain.SignalClaimer
	Archiver Archiver
	Events   domain.EventPublisher
}

type activeStrategy struct {
	cfg   domain.StrategyConfig
	chain *filter.Chain
}

// Bot owns the control loop lifecycle.
type Bot struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	root   context.Context
	cancel context.CancelFunc

	strategyMu sync.Mutex
	strategy   atomic.Pointer[activeStrategy]

	mu            sync.Mutex
	running       bool
	stopRequested bool
	done          chan struct{}
	wake          chan struct{}

	// owned by the loop goroutine
	lastNews    time.Time
	lastArchive time.Time
}

// New creates a stopped Bot.
func New(deps Deps, cfg Config, logger *slog.Logger) *Bot {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.NewsInterval <= 0 {
		cfg.NewsInterval = def.NewsInterval
	}
	if cfg.ErrorCooldown <= 0 {
		cfg.ErrorCooldown = def.ErrorCooldown
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = def.ClaimTTL
	}

	root, cancel := context.WithCancel(context.Background())
	b := &Bot{
		deps:   deps,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "bot")),
		now:    time.Now,
		root:   root,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
	}
	b.strategy.Store(&activeStrategy{
		cfg:   domain.StrategyConfig{Version: 1, Flags: cfg.Strategy, UpdatedAt: b.now().UTC()},
		chain: filter.Build(cfg.Strategy, deps.Filters),
	})
	deps.Store.SetBotState(domain.BotStateStopped)
	if deps.Accounts != nil {
		deps.Store.SetAccount(deps.Accounts.Selected())
	}
	return b
}

// Start launches the loop. It returns true when a new loop task was
// created. Calling Start while running creates nothing; if a stop was
// pending it is cancelled and the running loop carries on.
func (b *Bot) Start() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.root.Err() != nil {
		return false, ErrClosed
	}
	if b.running {
		if b.stopRequested {
			b.stopRequested = false
			select {
			case <-b.wake:
			default:
			}
			b.deps.Store.SetBotState(domain.BotStateRunning)
			b.logger.Info("pending stop cancelled")
			b.publishState()
		}
		return false, nil
	}

	b.running = true
	b.stopRequested = false
	b.done = make(chan struct{})
	b.deps.Store.SetBotState(domain.BotStateRunning)
	b.logger.Info("bot started", slog.Duration("poll_interval", b.cfg.PollInterval))
	b.publishState()

	go b.loop(b.done)
	return true, nil
}

// Stop asks the loop to exit at its next iteration boundary and wakes it
// if it is sleeping. It returns false when the loop was not running or a
// stop was already pending.
func (b *Bot) Stop() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running || b.stopRequested {
		return false
	}
	b.stopRequested = true
	b.deps.Store.SetBotState(domain.BotStateStopped)
	b.logger.Info("stop requested")
	b.publishState()

	select {
	case b.wake <- struct{}{}:
	default:
	}
	return true
}

// Running reports whether a loop task is alive and not stopping.
func (b *Bot) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running && !b.stopRequested
}

// Wait blocks until the current loop task, if any, has exited.
func (b *Bot) Wait() {
	b.mu.Lock()
	done := b.done
	b.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Shutdown stops the loop, cancels in-flight work and waits for it to
// exit. The bot cannot be started again.
func (b *Bot) Shutdown() {
	b.Stop()
	b.cancel()
	b.Wait()
}

// Run blocks until ctx is done, then shuts the bot down. With autostart
// the loop is started first.
func (b *Bot) Run(ctx context.Context, autostart bool) error {
	if autostart {
		if _, err := b.Start(); err != nil {
			return err
		}
	}
	<-ctx.Done()
	b.Shutdown()
	return nil
}

// Strategy returns the active strategy configuration.
func (b *Bot) Strategy() domain.StrategyConfig {
	return b.strategy.Load().cfg
}

// StrategyPatch changes some strategy flags; nil fields keep their value.
type StrategyPatch struct {
	UseMultiTimeframe *bool
	UseCorrelation    *bool
	UseModel          *bool
}

// UpdateStrategy installs flags as a new strategy version. A running loop
// picks it up at the start of its next iteration.
func (b *Bot) UpdateStrategy(flags domain.StrategyFlags) domain.StrategyConfig {
	b.strategyMu.Lock()
	defer b.strategyMu.Unlock()
	return b.installLocked(flags)
}

// PatchStrategy applies p on top of the current flags.
func (b *Bot) PatchStrategy(p StrategyPatch) domain.StrategyConfig {
	b.strategyMu.Lock()
	defer b.strategyMu.Unlock()

	flags := b.strategy.Load().cfg.Flags
	if p.UseMultiTimeframe != nil {
		flags.UseMultiTimeframe = *p.UseMultiTimeframe
	}
	if p.UseCorrelation != nil {
		flags.UseCorrelation = *p.UseCorrelation
	}
	if p.UseModel != nil {
		flags.UseModel = *p.UseModel
	}
	return b.installLocked(flags)
}

func (b *Bot) installLocked(flags domain.StrategyFlags) domain.StrategyConfig {
	prev := b.strategy.Load()
	next := &activeStrategy{
		cfg: domain.StrategyConfig{
			Version:   prev.cfg.Version + 1,
			Flags:     flags,
			UpdatedAt: b.now().UTC(),
		},
		chain: filter.Build(flags, b.deps.Filters),
	}
	b.strategy.Store(next)
	b.logger.Info("strategy updated",
		slog.Int64("version", next.cfg.Version),
		slog.Any("filters", next.chain.Names()),
	)
	b.publish(b.root, domain.EventStrategy, next.cfg)
	return next.cfg
}

// SwitchAccount selects the venue account used from the next execution
// onwards.
func (b *Bot) SwitchAccount(key string) error {
	if b.deps.Accounts == nil {
		return fmt.Errorf("bot: switch account: %w", domain.ErrUnknownAccount)
	}
	if err := b.deps.Accounts.Select(key); err != nil {
		return fmt.Errorf("bot: switch account: %w", err)
	}
	b.deps.Store.SetAccount(key)
	b.logger.Info("account switched", slog.String("account", key))
	b.publish(b.root, domain.EventAccount, map[string]string{"account": key})
	return nil
}

func (b *Bot) publishState() {
	b.publish(b.root, domain.EventBotState, b.deps.Store.Status())
}

func (b *Bot) publish(ctx context.Context, typ string, data any) {
	if b.deps.Events == nil {
		return
	}
	b.deps.Events.Publish(ctx, domain.Event{ID: id.NewUUID(), Type: typ, Time: b.now().UTC(), Data: data})
}

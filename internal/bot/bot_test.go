package bot

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fxscalper/internal/domain"
	"github.com/alanyoungcy/fxscalper/internal/executor"
	"github.com/alanyoungcy/fxscalper/internal/filter"
	"github.com/alanyoungcy/fxscalper/internal/state"
	"github.com/alanyoungcy/fxscalper/internal/venue"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

var eurusd = domain.Signal{
	Symbol: "EURUSD", Direction: domain.DirectionBuy,
	Entry: 1.1, SL: 1.095, TP: 1.11,
}

type prober struct{ up atomic.Bool }

func (p *prober) Probe(context.Context) bool { return p.up.Load() }

type signalSource struct {
	mu      sync.Mutex
	sigs    []domain.Signal
	err     error
	panicN  int
	gate    chan struct{}
	entered chan struct{}
	calls   atomic.Int32
}

func (s *signalSource) Name() string { return "fake" }

func (s *signalSource) Fetch(ctx context.Context) ([]domain.Signal, error) {
	n := s.calls.Add(1)
	if s.entered != nil {
		select {
		case s.entered <- struct{}{}:
		default:
		}
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(n) <= s.panicN {
		panic("scraper blew up")
	}
	return append([]domain.Signal(nil), s.sigs...), s.err
}

type newsSource struct{ calls atomic.Int32 }

func (n *newsSource) Fetch(context.Context) ([]domain.NewsItem, error) {
	n.calls.Add(1)
	return []domain.NewsItem{{Title: "NFP", Impact: "High"}}, nil
}

type fakeExecutor struct {
	mu     sync.Mutex
	stage  executor.Stage
	panicN int
	got    []domain.Signal
}

func (e *fakeExecutor) Execute(_ context.Context, sig domain.Signal) executor.Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.got = append(e.got, sig)
	if len(e.got) <= e.panicN {
		panic("order send blew up")
	}
	stage := e.stage
	if stage == "" {
		stage = executor.StageExecuted
	}
	return executor.Outcome{Signal: sig, Stage: stage}
}

func (e *fakeExecutor) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.got)
}

type fakeMetrics struct{ calls atomic.Int32 }

func (m *fakeMetrics) Recompute(context.Context) domain.PerformanceMetrics {
	m.calls.Add(1)
	return domain.PerformanceMetrics{}
}

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(_ context.Context, ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count(typ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

type harness struct {
	bot     *Bot
	store   *state.Store
	source  *signalSource
	news    *newsSource
	exec    *fakeExecutor
	metrics *fakeMetrics
	events  *recorder
}

func newHarness(t *testing.T, cfg Config, mutate func(*Deps)) *harness {
	t.Helper()

	accounts, err := venue.NewAccounts(map[string]domain.Credentials{
		"main":   {Login: 1, Server: "Demo"},
		"backup": {Login: 2, Server: "Demo"},
	}, "main")
	require.NoError(t, err)

	h := &harness{
		store:   state.New(),
		source:  &signalSource{sigs: []domain.Signal{eurusd}},
		news:    &newsSource{},
		exec:    &fakeExecutor{},
		metrics: &fakeMetrics{},
		events:  &recorder{},
	}
	p := &prober{}
	p.up.Store(true)
	deps := Deps{
		Venue:    p,
		Signals:  h.source,
		News:     h.news,
		Executor: h.exec,
		Metrics:  h.metrics,
		Store:    h.store,
		Accounts: accounts,
		Events:   h.events,
	}
	if mutate != nil {
		mutate(&deps)
	}
	h.bot = New(deps, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(h.bot.Shutdown)
	return h
}

func slowConfig() Config {
	cfg := DefaultConfig()
	cfg.Strategy = domain.StrategyFlags{}
	cfg.PollInterval = time.Hour
	return cfg
}

func TestStartTwiceRunsOneLoop(t *testing.T) {
	h := newHarness(t, slowConfig(), nil)

	started, err := h.bot.Start()
	require.NoError(t, err)
	assert.True(t, started)

	started, err = h.bot.Start()
	require.NoError(t, err)
	assert.False(t, started, "second start must not spawn a loop")

	require.Eventually(t, func() bool { return h.metrics.calls.Load() == 1 }, waitFor, tick)
	assert.Never(t, func() bool { return h.source.calls.Load() > 1 }, 50*time.Millisecond, tick)
	assert.Equal(t, domain.BotStateRunning, h.store.Status().State)
	assert.Equal(t, domain.VenueConnected, h.store.Status().Venue)
}

func TestStopInterruptsSleep(t *testing.T) {
	h := newHarness(t, slowConfig(), nil)

	_, err := h.bot.Start()
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.metrics.calls.Load() == 1 }, waitFor, tick)

	assert.True(t, h.bot.Stop())
	assert.False(t, h.bot.Stop(), "stop already pending")

	done := make(chan struct{})
	go func() {
		h.bot.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("loop did not exit after stop")
	}
	assert.False(t, h.bot.Running())
	assert.Equal(t, domain.BotStateStopped, h.store.Status().State)

	started, err := h.bot.Start()
	require.NoError(t, err)
	assert.True(t, started, "a stopped bot can be restarted")
}

func TestStopIsObservedAtIterationBoundary(t *testing.T) {
	h := newHarness(t, slowConfig(), nil)
	h.source.gate = make(chan struct{})
	h.source.entered = make(chan struct{}, 1)

	_, err := h.bot.Start()
	require.NoError(t, err)
	<-h.source.entered

	require.True(t, h.bot.Stop())
	close(h.source.gate)
	h.bot.Wait()

	assert.Equal(t, int32(1), h.metrics.calls.Load(), "the in-flight iteration completes")
	assert.Equal(t, 1, h.exec.calls())
}

func TestStartCancelsPendingStop(t *testing.T) {
	h := newHarness(t, slowConfig(), nil)
	h.source.gate = make(chan struct{})
	h.source.entered = make(chan struct{}, 1)

	_, err := h.bot.Start()
	require.NoError(t, err)
	<-h.source.entered

	require.True(t, h.bot.Stop())
	started, err := h.bot.Start()
	require.NoError(t, err)
	assert.False(t, started)
	close(h.source.gate)

	require.Eventually(t, func() bool { return h.metrics.calls.Load() == 1 }, waitFor, tick)
	assert.Never(t, func() bool { return !h.bot.Running() }, 50*time.Millisecond, tick)
	assert.Equal(t, domain.BotStateRunning, h.store.Status().State)
}

func TestPanicTriggersCooldownAndLoopSurvives(t *testing.T) {
	cfg := slowConfig()
	cfg.ErrorCooldown = 20 * time.Millisecond
	h := newHarness(t, cfg, nil)
	h.source.panicN = 1

	_, err := h.bot.Start()
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.source.calls.Load() >= 2 }, waitFor, tick)
	require.Eventually(t, func() bool { return h.metrics.calls.Load() == 1 }, waitFor, tick)
	assert.Equal(t, 1, h.events.count(domain.EventLoopError))
	assert.True(t, h.bot.Running())
	require.Eventually(t, func() bool { return h.store.Status().Iterations == 2 }, waitFor, tick)
	assert.Empty(t, h.store.Status().LastError, "a clean iteration clears the error")
}

func TestFetchFailureYieldsEmptySignals(t *testing.T) {
	h := newHarness(t, slowConfig(), nil)
	h.store.ReplaceSignals([]domain.Signal{eurusd})
	h.source.err = domain.ErrTransientScrape

	require.NoError(t, h.bot.iterate(context.Background()))
	assert.Empty(t, h.store.Signals())
	assert.Zero(t, h.exec.calls())
	assert.Equal(t, int32(1), h.metrics.calls.Load())
}

func TestInvalidSignalsAreSkipped(t *testing.T) {
	h := newHarness(t, slowConfig(), nil)
	bad := eurusd
	bad.Symbol = ""
	h.source.sigs = []domain.Signal{bad, eurusd}

	require.NoError(t, h.bot.iterate(context.Background()))
	assert.Equal(t, 1, h.exec.calls())
	assert.Len(t, h.store.Signals(), 2, "the published set is what the source returned")
}

func TestRejectedExecutionDoesNotStopIteration(t *testing.T) {
	h := newHarness(t, slowConfig(), nil)
	h.exec.stage = executor.StageRejected
	other := eurusd
	other.Symbol = "GBPUSD"
	h.source.sigs = []domain.Signal{eurusd, other}

	require.NoError(t, h.bot.iterate(context.Background()))
	assert.Equal(t, 2, h.exec.calls())
	assert.Equal(t, int32(1), h.metrics.calls.Load())
}

func TestStrategyUpdateAppliesNextIteration(t *testing.T) {
	rejectAll := filter.Func{ID: filter.NameMultiTimeframe, Fn: func(context.Context, domain.Signal) bool { return false }}
	cfg := slowConfig()
	cfg.Strategy = domain.StrategyFlags{UseMultiTimeframe: true}
	h := newHarness(t, cfg, func(d *Deps) { d.Filters = filter.Set{MultiTimeframe: rejectAll} })

	require.NoError(t, h.bot.iterate(context.Background()))
	assert.Zero(t, h.exec.calls())
	assert.Equal(t, int64(1), h.bot.Strategy().Version)

	off := false
	sc := h.bot.PatchStrategy(StrategyPatch{UseMultiTimeframe: &off})
	assert.Equal(t, int64(2), sc.Version)
	assert.False(t, sc.Flags.UseMultiTimeframe)
	assert.Equal(t, 1, h.events.count(domain.EventStrategy))

	require.NoError(t, h.bot.iterate(context.Background()))
	assert.Equal(t, 1, h.exec.calls())

	sc = h.bot.UpdateStrategy(domain.StrategyFlags{UseModel: true})
	assert.Equal(t, int64(3), sc.Version)
	require.NoError(t, h.bot.iterate(context.Background()))
	assert.Equal(t, 1, h.exec.calls(), "enabled filter without an implementation rejects")
}

func TestPatchKeepsUnsetFlags(t *testing.T) {
	h := newHarness(t, slowConfig(), nil)
	h.bot.UpdateStrategy(domain.StrategyFlags{UseMultiTimeframe: true, UseCorrelation: true})

	on := true
	sc := h.bot.PatchStrategy(StrategyPatch{UseModel: &on})
	assert.Equal(t, domain.StrategyFlags{UseMultiTimeframe: true, UseCorrelation: true, UseModel: true}, sc.Flags)
}

func TestClaimsPreventRepeatExecution(t *testing.T) {
	h := newHarness(t, slowConfig(), func(d *Deps) { d.Claimer = executor.NewDedup(time.Hour) })
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, h.bot.iterate(ctx))
	}
	assert.Equal(t, 1, h.exec.calls())
}

func TestConnectionFailureReleasesClaim(t *testing.T) {
	h := newHarness(t, slowConfig(), func(d *Deps) { d.Claimer = executor.NewDedup(time.Hour) })
	h.exec.stage = executor.StageConnectionFailed
	ctx := context.Background()

	require.NoError(t, h.bot.iterate(ctx))
	require.NoError(t, h.bot.iterate(ctx))
	assert.Equal(t, 2, h.exec.calls(), "signal is retried after a connection failure")
}

func TestExecutorPanicReleasesClaim(t *testing.T) {
	claims := executor.NewDedup(time.Hour)
	h := newHarness(t, slowConfig(), func(d *Deps) { d.Claimer = claims })
	h.exec.panicN = 1
	ctx := context.Background()

	assert.Error(t, h.bot.iterate(ctx))
	assert.Equal(t, 0, claims.Len(), "claim released after the panic")

	require.NoError(t, h.bot.iterate(ctx))
	assert.Equal(t, 2, h.exec.calls(), "signal is retried after the panic")
}

func TestNewsRefreshCadence(t *testing.T) {
	h := newHarness(t, slowConfig(), nil)
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	h.bot.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, h.bot.iterate(ctx))
	assert.Equal(t, int32(1), h.news.calls.Load(), "first iteration fetches news")
	assert.Len(t, h.store.News(), 1)

	now = now.Add(30 * time.Minute)
	require.NoError(t, h.bot.iterate(ctx))
	assert.Equal(t, int32(1), h.news.calls.Load())

	now = now.Add(30 * time.Minute)
	require.NoError(t, h.bot.iterate(ctx))
	assert.Equal(t, int32(2), h.news.calls.Load())
}

type archiver struct{ calls atomic.Int32 }

func (a *archiver) Archive(context.Context) error {
	a.calls.Add(1)
	return nil
}

func TestArchiveCadence(t *testing.T) {
	arc := &archiver{}
	cfg := slowConfig()
	cfg.ArchiveInterval = time.Hour
	h := newHarness(t, cfg, func(d *Deps) { d.Archiver = arc })
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	h.bot.now = func() time.Time { return now }

	require.NoError(t, h.bot.iterate(context.Background()))
	require.NoError(t, h.bot.iterate(context.Background()))
	assert.Equal(t, int32(1), arc.calls.Load())

	now = now.Add(time.Hour)
	require.NoError(t, h.bot.iterate(context.Background()))
	assert.Equal(t, int32(2), arc.calls.Load())
}

func TestSwitchAccount(t *testing.T) {
	h := newHarness(t, slowConfig(), nil)
	assert.Equal(t, "main", h.store.Status().Account)

	err := h.bot.SwitchAccount("nope")
	assert.ErrorIs(t, err, domain.ErrUnknownAccount)
	assert.Equal(t, "main", h.store.Status().Account)

	require.NoError(t, h.bot.SwitchAccount("backup"))
	assert.Equal(t, "backup", h.store.Status().Account)
	assert.Equal(t, 1, h.events.count(domain.EventAccount))
}

func TestVenueStatusRecorded(t *testing.T) {
	p := &prober{}
	h := newHarness(t, slowConfig(), func(d *Deps) { d.Venue = p })

	require.NoError(t, h.bot.iterate(context.Background()))
	assert.Equal(t, domain.VenueDisconnected, h.store.Status().Venue)
}

func TestShutdownPreventsRestart(t *testing.T) {
	h := newHarness(t, slowConfig(), nil)
	_, err := h.bot.Start()
	require.NoError(t, err)

	h.bot.Shutdown()
	assert.False(t, h.bot.Running())

	_, err = h.bot.Start()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRunAutostartsAndStopsOnCancel(t *testing.T) {
	h := newHarness(t, slowConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- h.bot.Run(ctx, true) }()

	require.Eventually(t, func() bool { return h.metrics.calls.Load() == 1 }, waitFor, tick)
	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("run did not return")
	}
	assert.Equal(t, domain.BotStateStopped, h.store.Status().State)
}

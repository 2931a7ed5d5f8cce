package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/fxscalper/internal/archive"
	s3blob "github.com/alanyoungcy/fxscalper/internal/blob/s3"
	"github.com/alanyoungcy/fxscalper/internal/bot"
	"github.com/alanyoungcy/fxscalper/internal/cache/redis"
	"github.com/alanyoungcy/fxscalper/internal/config"
	"github.com/alanyoungcy/fxscalper/internal/crypto"
	"github.com/alanyoungcy/fxscalper/internal/domain"
	"github.com/alanyoungcy/fxscalper/internal/events"
	"github.com/alanyoungcy/fxscalper/internal/executor"
	"github.com/alanyoungcy/fxscalper/internal/filter"
	"github.com/alanyoungcy/fxscalper/internal/metrics"
	"github.com/alanyoungcy/fxscalper/internal/notify"
	"github.com/alanyoungcy/fxscalper/internal/risk"
	"github.com/alanyoungcy/fxscalper/internal/server"
	"github.com/alanyoungcy/fxscalper/internal/server/handler"
	"github.com/alanyoungcy/fxscalper/internal/server/ws"
	"github.com/alanyoungcy/fxscalper/internal/source"
	"github.com/alanyoungcy/fxscalper/internal/state"
	"github.com/alanyoungcy/fxscalper/internal/store/postgres"
	"github.com/alanyoungcy/fxscalper/internal/store/sqlite"
	"github.com/alanyoungcy/fxscalper/internal/venue"
	"github.com/alanyoungcy/fxscalper/internal/venue/bridge"
	"github.com/alanyoungcy/fxscalper/internal/venue/sim"
)

// Components bundles everything the run command drives. It is built by
// Wire and torn down by the returned cleanup function.
type Components struct {
	Store    *state.Store
	Accounts *venue.Accounts
	Venue    *venue.Client
	Executor *executor.Executor
	Metrics  *metrics.Aggregator
	Bot      *bot.Bot

	// Optional; nil when disabled.
	Journal  domain.Journal
	Redis    *redis.Client
	Dedup    *executor.Dedup
	Archiver *archive.Archiver
	Hub      *ws.Hub
	Server   *server.Server
	Async    *events.Async
}

// Wire constructs every component from cfg and returns them together with
// a cleanup function that releases resources in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Components, func(), error) {
		cleanup()
		return nil, nil, err
	}

	c := &Components{Store: state.New()}

	// --- Accounts and venue ---
	profiles, err := ResolveCredentials(cfg)
	if err != nil {
		return fail(err)
	}
	c.Accounts, err = venue.NewAccounts(profiles, cfg.Accounts.Selected)
	if err != nil {
		return fail(fmt.Errorf("wire: accounts: %w", err))
	}
	term, err := buildTerminal(cfg, profiles)
	if err != nil {
		return fail(err)
	}
	c.Venue = venue.NewClient(term, c.Accounts.Credentials, logger)

	// --- Journal ---
	c.Journal, err = OpenJournal(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	if c.Journal != nil {
		closers = append(closers, func() { _ = c.Journal.Close() })
	}

	// --- Redis ---
	var claimer domain.SignalClaimer
	fanout := events.NewFanout()
	if cfg.Redis.Enabled {
		c.Redis, err = OpenRedis(ctx, cfg)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = c.Redis.Close() })
		claimer = redis.NewClaims(c.Redis)
		bus := redis.NewSignalBus(c.Redis, cfg.Redis.StreamMaxLen)
		fanout.Add(redis.NewEventSink(c.Redis, bus, logger))
	} else {
		c.Dedup = executor.NewDedup(cfg.Bot.ClaimTTL.Duration)
		claimer = c.Dedup
	}

	// --- Notifications ---
	if senders := buildSenders(cfg); len(senders) > 0 {
		notifier := notify.NewNotifier(senders, cfg.Notify.Events, logger)
		c.Async = events.NewAsync(notifier, 64, logger)
		fanout.Add(c.Async)
	}

	// --- WebSocket hub ---
	if cfg.Server.Enabled {
		c.Hub = ws.NewHub(c.Store.Status, logger)
		fanout.Add(c.Hub)
	}

	// --- Execution ---
	sizer := risk.NewSizer(cfg.Risk.RiskFraction, cfg.Risk.PipValue, cfg.Risk.MinLot, cfg.Risk.MaxLot)
	c.Executor = executor.New(c.Venue, sizer, c.Store, executorConfig(cfg.Executor), logger)
	c.Executor.SetAccountFunc(c.Accounts.Selected)
	c.Executor.SetPublisher(fanout)

	c.Metrics = metrics.NewAggregator(c.Venue, c.Store, logger)
	c.Metrics.SetAccountFunc(c.Accounts.Selected)
	c.Metrics.SetPublisher(fanout)

	if c.Journal != nil {
		c.Executor.SetJournal(c.Journal.Positions())
		c.Metrics.SetJournal(c.Journal.Positions(), c.Journal.Equity())
	}

	// --- Archive ---
	var archiver bot.Archiver
	if cfg.S3.Enabled {
		s3c, err := OpenS3(ctx, cfg)
		if err != nil {
			return fail(err)
		}
		c.Archiver = archive.New(s3blob.NewWriter(s3c, cfg.S3.PartSizeMB<<20), c.Store, cfg.Archive.Prefix, logger)
		if cfg.Archive.Cron == "" {
			archiver = c.Archiver
		}
	}

	// --- Sources ---
	signals, err := buildSignalSource(cfg.Signals, logger)
	if err != nil {
		return fail(err)
	}
	var news source.NewsSource
	if cfg.News.Enabled {
		news = source.NewCalendarSource(source.HTTPConfig{
			URL:     cfg.News.URL,
			Timeout: cfg.News.Timeout.Duration,
		}, cfg.News.Limit, logger)
	}

	deps := bot.Deps{
		Venue:    c.Venue,
		Signals:  signals,
		News:     news,
		Executor: c.Executor,
		Metrics:  c.Metrics,
		Store:    c.Store,
		Accounts: c.Accounts,
		Filters:  buildFilters(cfg.Strategy, c.Venue, c.Store, logger),
		Claimer:  claimer,
		Archiver: archiver,
		Events:   fanout,
	}
	c.Bot = bot.New(deps, botConfig(cfg), logger)

	// --- HTTP server ---
	if cfg.Server.Enabled {
		var audit domain.AuditStore
		if c.Journal != nil {
			audit = c.Journal.Audit()
		}
		c.Server = server.NewServer(server.Config{
			Port:         cfg.Server.Port,
			CORSOrigins:  cfg.Server.CORSOrigins,
			APIKey:       cfg.Server.APIKey,
			ReadTimeout:  cfg.Server.ReadTimeout.Duration,
			WriteTimeout: cfg.Server.WriteTimeout.Duration,
		}, server.Handlers{
			Health:  handler.NewHealthHandler(c.Store.Status),
			Query:   handler.NewQueryHandler(c.Store, c.Bot, c.Accounts, c.Journal, logger),
			Control: handler.NewControlHandler(c.Bot, audit, logger),
		}, c.Hub, logger)
	}

	return c, cleanup, nil
}

// ResolveCredentials builds the account table. A profile password comes
// from its environment variable when set, otherwise from the vault.
func ResolveCredentials(cfg *config.Config) (map[string]domain.Credentials, error) {
	var vault *crypto.Vault
	out := make(map[string]domain.Credentials, len(cfg.Accounts.Profiles))
	for key, p := range cfg.Accounts.Profiles {
		password := p.Password
		if password == "" && cfg.Accounts.VaultPath != "" {
			if vault == nil {
				v, err := crypto.LoadVault(cfg.Accounts.VaultPath)
				if err != nil {
					return nil, fmt.Errorf("wire: load vault: %w", err)
				}
				vault = v
			}
			secret, err := vault.Open(key, cfg.Accounts.VaultPassword)
			if err != nil && !errors.Is(err, domain.ErrNoCredentials) {
				return nil, fmt.Errorf("wire: account %q: %w", key, err)
			}
			password = secret
		}
		out[key] = domain.Credentials{Login: p.Login, Password: password, Server: p.Server}
	}
	return out, nil
}

func buildTerminal(cfg *config.Config, profiles map[string]domain.Credentials) (venue.Terminal, error) {
	switch cfg.Venue.Driver {
	case "bridge":
		bc := bridge.Config{
			BaseURL: cfg.Venue.Bridge.BaseURL,
			APIKey:  cfg.Venue.Bridge.APIKey,
			Timeout: cfg.Venue.Bridge.Timeout.Duration,
		}
		if cfg.Venue.Bridge.SignKey != "" {
			bc.Signer = &crypto.RequestSigner{Key: cfg.Venue.Bridge.SignKey, Secret: cfg.Venue.Bridge.SignSecret}
		}
		return bridge.New(bc), nil
	case "sim", "":
		logins := make([]int64, 0, len(profiles))
		for _, p := range profiles {
			logins = append(logins, p.Login)
		}
		return sim.New(sim.Config{
			Balance:      cfg.Venue.Sim.Balance,
			Currency:     cfg.Venue.Sim.Currency,
			ContractSize: cfg.Venue.Sim.ContractSize,
			Symbols:      cfg.Venue.Sim.Symbols,
			Logins:       logins,
		}), nil
	default:
		return nil, fmt.Errorf("wire: unknown venue driver %q", cfg.Venue.Driver)
	}
}

// OpenJournal opens the configured journal driver. It returns nil for
// driver "none".
func OpenJournal(ctx context.Context, cfg *config.Config) (domain.Journal, error) {
	switch cfg.Journal.Driver {
	case "sqlite":
		j, err := sqlite.Open(cfg.Journal.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("wire: sqlite: %w", err)
		}
		return j, nil
	case "postgres":
		pg := cfg.Journal.Postgres
		client, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      pg.DSN,
			Host:     pg.Host,
			Port:     pg.Port,
			Database: pg.Database,
			User:     pg.User,
			Password: pg.Password,
			SSLMode:  pg.SSLMode,
			MaxConns: pg.PoolMaxConns,
			MinConns: pg.PoolMinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("wire: postgres: %w", err)
		}
		if pg.RunMigrations {
			if err := client.RunMigrations(ctx); err != nil {
				_ = client.Close()
				return nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		return client, nil
	default:
		return nil, nil
	}
}

// OpenRedis connects to Redis using the configured key prefix.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
		KeyPrefix:  cfg.Redis.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("wire: redis: %w", err)
	}
	return client, nil
}

// OpenS3 creates the object storage client.
func OpenS3(ctx context.Context, cfg *config.Config) (*s3blob.Client, error) {
	client, err := s3blob.New(ctx, s3blob.ClientConfig{
		Endpoint:       cfg.S3.Endpoint,
		Region:         cfg.S3.Region,
		Bucket:         cfg.S3.Bucket,
		AccessKey:      cfg.S3.AccessKey,
		SecretKey:      cfg.S3.SecretKey,
		UseSSL:         cfg.S3.UseSSL,
		ForcePathStyle: cfg.S3.ForcePathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("wire: s3: %w", err)
	}
	return client, nil
}

func buildSenders(cfg *config.Config) []notify.Sender {
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramAPI,
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	return senders
}

func buildSignalSource(sc config.SignalsConfig, logger *slog.Logger) (source.SignalSource, error) {
	httpCfg := source.HTTPConfig{
		URL:       sc.URL,
		Timeout:   sc.Timeout.Duration,
		UserAgent: sc.UserAgent,
		Token:     sc.Token,
		Cookie:    sc.Cookie,
	}
	switch sc.Kind {
	case "json":
		return source.NewJSONSource(httpCfg, logger), nil
	case "html":
		sel := source.DefaultHTMLSelectors()
		overrideSelector(&sel.Card, sc.Selectors.Card)
		overrideSelector(&sel.Symbol, sc.Selectors.Symbol)
		overrideSelector(&sel.Direction, sc.Selectors.Direction)
		overrideSelector(&sel.Entry, sc.Selectors.Entry)
		overrideSelector(&sel.SL, sc.Selectors.SL)
		overrideSelector(&sel.TP, sc.Selectors.TP)
		return source.NewHTMLSource(httpCfg, sel, logger), nil
	case "static":
		sigs := make([]domain.Signal, 0, len(sc.Static))
		for i, row := range sc.Static {
			dir, err := domain.ParseDirection(row.Direction)
			if err != nil {
				return nil, fmt.Errorf("wire: static signal %d: %w", i, err)
			}
			sigs = append(sigs, domain.Signal{
				Symbol:    strings.ToUpper(row.Symbol),
				Direction: dir,
				Entry:     row.Entry,
				SL:        row.SL,
				TP:        row.TP,
			})
		}
		return source.NewStaticSource(sigs), nil
	default:
		return nil, fmt.Errorf("wire: unknown signal source kind %q", sc.Kind)
	}
}

func overrideSelector(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func buildFilters(sc config.StrategyConfig, candles filter.CandleSource, positions filter.PositionSource, logger *slog.Logger) filter.Set {
	var scorer filter.Scorer = filter.DefaultLogisticScorer()
	if sc.Model.Endpoint != "" {
		scorer = filter.NewRemoteScorer(sc.Model.Endpoint, sc.Model.Path, sc.Model.APIKey, sc.Model.Timeout.Duration)
	}
	return filter.Set{
		MultiTimeframe: filter.NewMultiTimeframe(candles, filter.MultiTimeframeConfig{
			Timeframes: sc.MultiTimeframe.Timeframes,
			FastPeriod: sc.MultiTimeframe.FastPeriod,
			SlowPeriod: sc.MultiTimeframe.SlowPeriod,
		}, logger),
		Correlation: filter.NewCorrelation(positions, sc.Correlation.MaxSameCurrency),
		Model:       filter.NewModelScore(scorer, sc.Model.Threshold, logger),
	}
}

func executorConfig(ec config.ExecutorConfig) executor.Config {
	cfg := executor.DefaultConfig()
	if ec.Deviation > 0 {
		cfg.Deviation = ec.Deviation
	}
	if ec.Magic != 0 {
		cfg.Magic = ec.Magic
	}
	if ec.Comment != "" {
		cfg.Comment = ec.Comment
	}
	if ec.TimeInForce != "" {
		cfg.TimeInForce = domain.TimeInForce(strings.ToUpper(ec.TimeInForce))
	}
	if ec.Filling != "" {
		cfg.Filling = domain.FillPolicy(strings.ToUpper(ec.Filling))
	}
	return cfg
}

func botConfig(cfg *config.Config) bot.Config {
	return bot.Config{
		PollInterval:    cfg.Bot.PollInterval.Duration,
		NewsInterval:    cfg.Bot.NewsInterval.Duration,
		ErrorCooldown:   cfg.Bot.ErrorCooldown.Duration,
		ArchiveInterval: cfg.Bot.ArchiveInterval.Duration,
		ClaimTTL:        cfg.Bot.ClaimTTL.Duration,
		Strategy: domain.StrategyFlags{
			UseMultiTimeframe: cfg.Strategy.UseMultiTimeframe,
			UseCorrelation:    cfg.Strategy.UseCorrelation,
			UseModel:          cfg.Strategy.UseModel,
		},
	}
}

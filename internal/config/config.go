// Package config defines the top-level configuration for fxscalper and
// provides validation helpers.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alanyoungcy/fxscalper/internal/venue/sim"
)

// Config is the root configuration structure. Fields are populated from a
// TOML or YAML file and then optionally overridden by FXSCALPER_*
// environment variables.
type Config struct {
	Log      LogConfig      `toml:"log" yaml:"log"`
	Server   ServerConfig   `toml:"server" yaml:"server"`
	Bot      BotConfig      `toml:"bot" yaml:"bot"`
	Risk     RiskConfig     `toml:"risk" yaml:"risk"`
	Executor ExecutorConfig `toml:"executor" yaml:"executor"`
	Strategy StrategyConfig `toml:"strategy" yaml:"strategy"`
	Accounts AccountsConfig `toml:"accounts" yaml:"accounts"`
	Venue    VenueConfig    `toml:"venue" yaml:"venue"`
	Signals  SignalsConfig  `toml:"signals" yaml:"signals"`
	News     NewsConfig     `toml:"news" yaml:"news"`
	Journal  JournalConfig  `toml:"journal" yaml:"journal"`
	Redis    RedisConfig    `toml:"redis" yaml:"redis"`
	S3       S3Config       `toml:"s3" yaml:"s3"`
	Archive  ArchiveConfig  `toml:"archive" yaml:"archive"`
	Notify   NotifyConfig   `toml:"notify" yaml:"notify"`
}

// LogConfig controls the slog handler and optional rotated log file.
type LogConfig struct {
	Level      string `toml:"level" yaml:"level"`
	Format     string `toml:"format" yaml:"format"`
	File       string `toml:"file" yaml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `toml:"compress" yaml:"compress"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled      bool     `toml:"enabled" yaml:"enabled"`
	Port         int      `toml:"port" yaml:"port"`
	CORSOrigins  []string `toml:"cors_origins" yaml:"cors_origins"`
	APIKey       string   `toml:"api_key" yaml:"api_key"`
	ReadTimeout  duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout duration `toml:"write_timeout" yaml:"write_timeout"`
}

// BotConfig holds control loop cadence.
type BotConfig struct {
	Autostart       bool     `toml:"autostart" yaml:"autostart"`
	PollInterval    duration `toml:"poll_interval" yaml:"poll_interval"`
	NewsInterval    duration `toml:"news_interval" yaml:"news_interval"`
	ErrorCooldown   duration `toml:"error_cooldown" yaml:"error_cooldown"`
	ArchiveInterval duration `toml:"archive_interval" yaml:"archive_interval"`
	ClaimTTL        duration `toml:"claim_ttl" yaml:"claim_ttl"`
}

// RiskConfig parameterises position sizing.
type RiskConfig struct {
	RiskFraction float64 `toml:"risk_fraction" yaml:"risk_fraction"`
	PipValue     float64 `toml:"pip_value" yaml:"pip_value"`
	MinLot       float64 `toml:"min_lot" yaml:"min_lot"`
	MaxLot       float64 `toml:"max_lot" yaml:"max_lot"`
}

// ExecutorConfig holds the fixed fields of every market order.
type ExecutorConfig struct {
	Deviation   int    `toml:"deviation" yaml:"deviation"`
	Magic       int64  `toml:"magic" yaml:"magic"`
	Comment     string `toml:"comment" yaml:"comment"`
	TimeInForce string `toml:"time_in_force" yaml:"time_in_force"`
	Filling     string `toml:"filling" yaml:"filling"`
}

// StrategyConfig holds the initial filter flags and per-filter tuning.
type StrategyConfig struct {
	UseMultiTimeframe bool                 `toml:"use_multi_timeframe" yaml:"use_multi_timeframe"`
	UseCorrelation    bool                 `toml:"use_correlation" yaml:"use_correlation"`
	UseModel          bool                 `toml:"use_model" yaml:"use_model"`
	MultiTimeframe    MultiTimeframeConfig `toml:"multi_timeframe" yaml:"multi_timeframe"`
	Correlation       CorrelationConfig    `toml:"correlation" yaml:"correlation"`
	Model             ModelConfig          `toml:"model" yaml:"model"`
}

// MultiTimeframeConfig tunes the EMA trend filter.
type MultiTimeframeConfig struct {
	Timeframes []string `toml:"timeframes" yaml:"timeframes"`
	FastPeriod int      `toml:"fast_period" yaml:"fast_period"`
	SlowPeriod int      `toml:"slow_period" yaml:"slow_period"`
}

// CorrelationConfig tunes the currency stacking filter.
type CorrelationConfig struct {
	MaxSameCurrency int `toml:"max_same_currency" yaml:"max_same_currency"`
}

// ModelConfig selects the signal scorer. An empty Endpoint uses the
// built-in logistic scorer.
type ModelConfig struct {
	Threshold float64  `toml:"threshold" yaml:"threshold"`
	Endpoint  string   `toml:"endpoint" yaml:"endpoint"`
	Path      string   `toml:"path" yaml:"path"`
	APIKey    string   `toml:"api_key" yaml:"api_key"`
	Timeout   duration `toml:"timeout" yaml:"timeout"`
}

// AccountsConfig lists the venue accounts. Passwords come from the
// environment or the vault, never from the file.
type AccountsConfig struct {
	Selected      string                   `toml:"selected" yaml:"selected"`
	VaultPath     string                   `toml:"vault_path" yaml:"vault_path"`
	VaultPassword string                   `toml:"vault_password" yaml:"vault_password"`
	Profiles      map[string]AccountConfig `toml:"profiles" yaml:"profiles"`
}

// AccountConfig is one venue login.
type AccountConfig struct {
	Login    int64  `toml:"login" yaml:"login"`
	Server   string `toml:"server" yaml:"server"`
	Password string `toml:"-" yaml:"-"`
}

// VenueConfig picks the terminal driver.
type VenueConfig struct {
	Driver string       `toml:"driver" yaml:"driver"`
	Bridge BridgeConfig `toml:"bridge" yaml:"bridge"`
	Sim    SimConfig    `toml:"sim" yaml:"sim"`
}

// BridgeConfig points at the terminal HTTP gateway.
type BridgeConfig struct {
	BaseURL    string   `toml:"base_url" yaml:"base_url"`
	APIKey     string   `toml:"api_key" yaml:"api_key"`
	SignKey    string   `toml:"sign_key" yaml:"sign_key"`
	SignSecret string   `toml:"sign_secret" yaml:"sign_secret"`
	Timeout    duration `toml:"timeout" yaml:"timeout"`
}

// SimConfig seeds the paper terminal.
type SimConfig struct {
	Balance      float64               `toml:"balance" yaml:"balance"`
	Currency     string                `toml:"currency" yaml:"currency"`
	ContractSize float64               `toml:"contract_size" yaml:"contract_size"`
	Symbols      map[string]sim.Symbol `toml:"symbols" yaml:"symbols"`
}

// SignalsConfig configures the signal source.
type SignalsConfig struct {
	Kind      string            `toml:"kind" yaml:"kind"`
	URL       string            `toml:"url" yaml:"url"`
	Token     string            `toml:"token" yaml:"token"`
	Cookie    string            `toml:"cookie" yaml:"cookie"`
	UserAgent string            `toml:"user_agent" yaml:"user_agent"`
	Timeout   duration          `toml:"timeout" yaml:"timeout"`
	Selectors SelectorsConfig   `toml:"selectors" yaml:"selectors"`
	Static    []StaticSignalRow `toml:"static" yaml:"static"`
}

// SelectorsConfig overrides the HTML signal card selectors.
type SelectorsConfig struct {
	Card      string `toml:"card" yaml:"card"`
	Symbol    string `toml:"symbol" yaml:"symbol"`
	Direction string `toml:"direction" yaml:"direction"`
	Entry     string `toml:"entry" yaml:"entry"`
	SL        string `toml:"sl" yaml:"sl"`
	TP        string `toml:"tp" yaml:"tp"`
}

// StaticSignalRow is a fixed signal served by the "static" source kind,
// used for paper trading and demos.
type StaticSignalRow struct {
	Symbol    string  `toml:"symbol" yaml:"symbol"`
	Direction string  `toml:"direction" yaml:"direction"`
	Entry     float64 `toml:"entry" yaml:"entry"`
	SL        float64 `toml:"sl" yaml:"sl"`
	TP        float64 `toml:"tp" yaml:"tp"`
}

// NewsConfig configures the economic calendar source.
type NewsConfig struct {
	Enabled bool     `toml:"enabled" yaml:"enabled"`
	URL     string   `toml:"url" yaml:"url"`
	Limit   int      `toml:"limit" yaml:"limit"`
	Timeout duration `toml:"timeout" yaml:"timeout"`
}

// JournalConfig selects durable storage for positions, equity and audit.
type JournalConfig struct {
	Driver     string         `toml:"driver" yaml:"driver"`
	SQLitePath string         `toml:"sqlite_path" yaml:"sqlite_path"`
	Postgres   PostgresConfig `toml:"postgres" yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn" yaml:"dsn"`
	Host          string `toml:"host" yaml:"host"`
	Port          int    `toml:"port" yaml:"port"`
	Database      string `toml:"database" yaml:"database"`
	User          string `toml:"user" yaml:"user"`
	Password      string `toml:"password" yaml:"password"`
	SSLMode       string `toml:"ssl_mode" yaml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns" yaml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns" yaml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations" yaml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool   `toml:"enabled" yaml:"enabled"`
	Addr         string `toml:"addr" yaml:"addr"`
	Password     string `toml:"password" yaml:"password"`
	DB           int    `toml:"db" yaml:"db"`
	PoolSize     int    `toml:"pool_size" yaml:"pool_size"`
	MaxRetries   int    `toml:"max_retries" yaml:"max_retries"`
	TLSEnabled   bool   `toml:"tls_enabled" yaml:"tls_enabled"`
	KeyPrefix    string `toml:"key_prefix" yaml:"key_prefix"`
	StreamMaxLen int64  `toml:"stream_max_len" yaml:"stream_max_len"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled" yaml:"enabled"`
	Endpoint       string `toml:"endpoint" yaml:"endpoint"`
	Region         string `toml:"region" yaml:"region"`
	Bucket         string `toml:"bucket" yaml:"bucket"`
	AccessKey      string `toml:"access_key" yaml:"access_key"`
	SecretKey      string `toml:"secret_key" yaml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl" yaml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style" yaml:"force_path_style"`
	PartSizeMB     int64  `toml:"part_size_mb" yaml:"part_size_mb"`
}

// ArchiveConfig schedules ledger snapshots. Cron takes precedence over
// the loop-driven Bot.ArchiveInterval.
type ArchiveConfig struct {
	Prefix string `toml:"prefix" yaml:"prefix"`
	Cron   string `toml:"cron" yaml:"cron"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramAPI       string   `toml:"telegram_api" yaml:"telegram_api"`
	TelegramToken     string   `toml:"telegram_token" yaml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id" yaml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url" yaml:"discord_webhook_url"`
	Events            []string `toml:"events" yaml:"events"`
}

// duration is a wrapper around time.Duration that decodes from strings such
// as "30m" in both TOML and YAML.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for the TOML decoder.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// MarshalYAML implements yaml.Marshaler.
func (d duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// Defaults returns a Config populated with sensible defaults.
func Defaults() Config {
	return Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Server: ServerConfig{
			Enabled:      true,
			Port:         5000,
			CORSOrigins:  []string{"*"},
			ReadTimeout:  duration{15 * time.Second},
			WriteTimeout: duration{15 * time.Second},
		},
		Bot: BotConfig{
			Autostart:       false,
			PollInterval:    duration{30 * time.Minute},
			NewsInterval:    duration{time.Hour},
			ErrorCooldown:   duration{60 * time.Second},
			ArchiveInterval: duration{0},
			ClaimTTL:        duration{24 * time.Hour},
		},
		Risk: RiskConfig{
			RiskFraction: 0.01,
			PipValue:     10,
			MinLot:       0.01,
			MaxLot:       50,
		},
		Executor: ExecutorConfig{
			Deviation:   5,
			Magic:       123456,
			Comment:     "AutoTrade",
			TimeInForce: "GTC",
			Filling:     "IOC",
		},
		Strategy: StrategyConfig{
			UseMultiTimeframe: true,
			MultiTimeframe: MultiTimeframeConfig{
				Timeframes: []string{"H1", "H4"},
				FastPeriod: 9,
				SlowPeriod: 21,
			},
			Correlation: CorrelationConfig{MaxSameCurrency: 2},
			Model: ModelConfig{
				Threshold: 0.55,
				Path:      "/score",
				Timeout:   duration{5 * time.Second},
			},
		},
		Venue: VenueConfig{
			Driver: "sim",
			Bridge: BridgeConfig{Timeout: duration{15 * time.Second}},
			Sim: SimConfig{
				Balance:  10_000,
				Currency: "USD",
			},
		},
		Signals: SignalsConfig{
			Kind:    "json",
			Timeout: duration{15 * time.Second},
		},
		News: NewsConfig{
			Enabled: true,
			URL:     "https://www.fxstreet.com/economic-calendar",
			Limit:   10,
			Timeout: duration{15 * time.Second},
		},
		Journal: JournalConfig{
			Driver:     "none",
			SQLitePath: "fxscalper.db",
			Postgres: PostgresConfig{
				Host:          "localhost",
				Port:          5432,
				Database:      "fxscalper",
				User:          "fxscalper",
				SSLMode:       "disable",
				PoolMaxConns:  10,
				PoolMinConns:  1,
				RunMigrations: true,
			},
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     10,
			MaxRetries:   3,
			KeyPrefix:    "fxscalper",
			StreamMaxLen: 10_000,
		},
		S3: S3Config{
			Region:         "us-east-1",
			ForcePathStyle: true,
			UseSSL:         true,
			PartSizeMB:     5,
		},
		Archive: ArchiveConfig{
			Prefix: "ledger",
		},
		Notify: NotifyConfig{
			TelegramAPI: "https://api.telegram.org",
			Events:      []string{"trade_executed", "trade_rejected", "loop_error", "bot_state"},
		},
	}
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validChoices = map[string]map[string]bool{
	"venue.driver":           {"sim": true, "bridge": true},
	"signals.kind":           {"json": true, "html": true, "static": true},
	"journal.driver":         {"none": true, "sqlite": true, "postgres": true},
	"log.format":             {"json": true, "text": true},
	"executor.time_in_force": {"GTC": true, "DAY": true},
	"executor.filling":       {"IOC": true, "FOK": true},
}

func checkChoice(errs *[]string, name, value string) {
	if !validChoices[name][value] {
		valid := make([]string, 0, len(validChoices[name]))
		for k := range validChoices[name] {
			valid = append(valid, k)
		}
		*errs = append(*errs, fmt.Sprintf("%s: unknown value %q (valid: %s)", name, value, strings.Join(sorted(valid), ", ")))
	}
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log: unknown level %q (valid: debug, info, warn, error)", c.Log.Level))
	}
	checkChoice(&errs, "log.format", c.Log.Format)

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if c.Bot.PollInterval.Duration <= 0 {
		errs = append(errs, "bot: poll_interval must be > 0")
	}
	if c.Bot.NewsInterval.Duration <= 0 {
		errs = append(errs, "bot: news_interval must be > 0")
	}
	if c.Bot.ErrorCooldown.Duration < 0 {
		errs = append(errs, "bot: error_cooldown must be >= 0")
	}

	if c.Risk.RiskFraction <= 0 || c.Risk.RiskFraction > 1 {
		errs = append(errs, "risk: risk_fraction must be in (0, 1]")
	}
	if c.Risk.PipValue <= 0 {
		errs = append(errs, "risk: pip_value must be > 0")
	}
	if c.Risk.MinLot <= 0 || c.Risk.MaxLot < c.Risk.MinLot {
		errs = append(errs, "risk: need 0 < min_lot <= max_lot")
	}

	checkChoice(&errs, "executor.time_in_force", c.Executor.TimeInForce)
	checkChoice(&errs, "executor.filling", c.Executor.Filling)
	if c.Executor.Deviation < 0 {
		errs = append(errs, "executor: deviation must be >= 0")
	}

	mtf := c.Strategy.MultiTimeframe
	if len(mtf.Timeframes) == 0 {
		errs = append(errs, "strategy.multi_timeframe: timeframes must not be empty")
	}
	if mtf.FastPeriod <= 0 || mtf.SlowPeriod <= mtf.FastPeriod {
		errs = append(errs, "strategy.multi_timeframe: need 0 < fast_period < slow_period")
	}
	if c.Strategy.Model.Threshold < 0 || c.Strategy.Model.Threshold > 1 {
		errs = append(errs, "strategy.model: threshold must be in [0, 1]")
	}

	if len(c.Accounts.Profiles) == 0 {
		errs = append(errs, "accounts: at least one profile is required")
	} else if _, ok := c.Accounts.Profiles[c.Accounts.Selected]; !ok {
		errs = append(errs, fmt.Sprintf("accounts: selected %q is not a configured profile", c.Accounts.Selected))
	}

	checkChoice(&errs, "venue.driver", c.Venue.Driver)
	switch c.Venue.Driver {
	case "bridge":
		if c.Venue.Bridge.BaseURL == "" {
			errs = append(errs, "venue.bridge: base_url must not be empty")
		}
		if (c.Venue.Bridge.SignKey == "") != (c.Venue.Bridge.SignSecret == "") {
			errs = append(errs, "venue.bridge: sign_key and sign_secret must be set together")
		}
	case "sim":
		if c.Venue.Sim.Balance < 0 {
			errs = append(errs, "venue.sim: balance must be >= 0")
		}
	}

	checkChoice(&errs, "signals.kind", c.Signals.Kind)
	if c.Signals.Kind != "static" && c.Signals.URL == "" {
		errs = append(errs, "signals: url must not be empty")
	}
	if c.News.Enabled && c.News.URL == "" {
		errs = append(errs, "news: url must not be empty when enabled")
	}

	checkChoice(&errs, "journal.driver", c.Journal.Driver)
	switch c.Journal.Driver {
	case "sqlite":
		if c.Journal.SQLitePath == "" {
			errs = append(errs, "journal: sqlite_path must not be empty")
		}
	case "postgres":
		pg := c.Journal.Postgres
		if strings.TrimSpace(pg.DSN) == "" {
			if pg.Host == "" {
				errs = append(errs, "journal.postgres: host must not be empty (or set dsn)")
			}
			if pg.Port <= 0 || pg.Port > 65535 {
				errs = append(errs, fmt.Sprintf("journal.postgres: port must be 1-65535, got %d", pg.Port))
			}
			if pg.Database == "" {
				errs = append(errs, "journal.postgres: database must not be empty")
			}
		}
		if pg.PoolMaxConns < 1 {
			errs = append(errs, "journal.postgres: pool_max_conns must be >= 1")
		}
		if pg.PoolMinConns < 0 || pg.PoolMinConns > pg.PoolMaxConns {
			errs = append(errs, "journal.postgres: need 0 <= pool_min_conns <= pool_max_conns")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.S3.Enabled && c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}
	if (c.Archive.Cron != "" || c.Bot.ArchiveInterval.Duration > 0) && !c.S3.Enabled {
		errs = append(errs, "archive: scheduling requires s3.enabled")
	}

	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func sorted(s []string) []string {
	sort.Strings(s)
	return s
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FXSCALPER_"

// Load reads the configuration file at path (TOML, or YAML for .yaml/.yml),
// merges it on top of the built-in defaults, loads .env if present and
// applies FXSCALPER_* environment overrides. An empty path skips the file.
// The returned Config has NOT been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	applyAccountDefaults(&cfg)

	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: decode %s: %w", path, err)
		}
	default:
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undec := md.Undecoded(); len(undec) > 0 {
			keys := make([]string, len(undec))
			for i, k := range undec {
				keys[i] = k.String()
			}
			return fmt.Errorf("config: %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}
	return nil
}

// applyAccountDefaults gives the paper terminal a demo login when no
// accounts are configured.
func applyAccountDefaults(cfg *Config) {
	if len(cfg.Accounts.Profiles) == 0 && cfg.Venue.Driver == "sim" {
		cfg.Accounts.Profiles = map[string]AccountConfig{
			"demo": {Login: 1000, Server: "FXSim-Demo"},
		}
	}
	if cfg.Accounts.Selected == "" && len(cfg.Accounts.Profiles) == 1 {
		for k := range cfg.Accounts.Profiles {
			cfg.Accounts.Selected = k
		}
	}
}

// AccountPasswordEnv is the variable holding the password of account key.
func AccountPasswordEnv(key string) string {
	r := strings.NewReplacer("-", "_", ".", "_", " ", "_")
	return EnvPrefix + "ACCOUNT_" + strings.ToUpper(r.Replace(key)) + "_PASSWORD"
}

// applyEnvOverrides reads well-known FXSCALPER_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
func applyEnvOverrides(cfg *Config) {
	// ── Log ──
	setStr(&cfg.Log.Level, "FXSCALPER_LOG_LEVEL")
	setStr(&cfg.Log.Format, "FXSCALPER_LOG_FORMAT")
	setStr(&cfg.Log.File, "FXSCALPER_LOG_FILE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "FXSCALPER_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "FXSCALPER_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "FXSCALPER_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "FXSCALPER_SERVER_API_KEY")

	// ── Bot ──
	setBool(&cfg.Bot.Autostart, "FXSCALPER_BOT_AUTOSTART")
	setDuration(&cfg.Bot.PollInterval, "FXSCALPER_BOT_POLL_INTERVAL")
	setDuration(&cfg.Bot.NewsInterval, "FXSCALPER_BOT_NEWS_INTERVAL")
	setDuration(&cfg.Bot.ErrorCooldown, "FXSCALPER_BOT_ERROR_COOLDOWN")
	setDuration(&cfg.Bot.ArchiveInterval, "FXSCALPER_BOT_ARCHIVE_INTERVAL")

	// ── Risk ──
	setFloat64(&cfg.Risk.RiskFraction, "FXSCALPER_RISK_FRACTION")
	setFloat64(&cfg.Risk.MaxLot, "FXSCALPER_RISK_MAX_LOT")

	// ── Strategy ──
	setBool(&cfg.Strategy.UseMultiTimeframe, "FXSCALPER_STRATEGY_USE_MULTI_TIMEFRAME")
	setBool(&cfg.Strategy.UseCorrelation, "FXSCALPER_STRATEGY_USE_CORRELATION")
	setBool(&cfg.Strategy.UseModel, "FXSCALPER_STRATEGY_USE_MODEL")
	setStr(&cfg.Strategy.Model.Endpoint, "FXSCALPER_STRATEGY_MODEL_ENDPOINT")
	setStr(&cfg.Strategy.Model.APIKey, "FXSCALPER_STRATEGY_MODEL_API_KEY")

	// ── Accounts ──
	setStr(&cfg.Accounts.Selected, "FXSCALPER_ACCOUNTS_SELECTED")
	setStr(&cfg.Accounts.VaultPath, "FXSCALPER_ACCOUNTS_VAULT_PATH")
	setStr(&cfg.Accounts.VaultPassword, "FXSCALPER_VAULT_PASSWORD")
	for key, acct := range cfg.Accounts.Profiles {
		setStr(&acct.Password, AccountPasswordEnv(key))
		cfg.Accounts.Profiles[key] = acct
	}

	// ── Venue ──
	setStr(&cfg.Venue.Driver, "FXSCALPER_VENUE_DRIVER")
	setStr(&cfg.Venue.Bridge.BaseURL, "FXSCALPER_VENUE_BRIDGE_BASE_URL")
	setStr(&cfg.Venue.Bridge.APIKey, "FXSCALPER_VENUE_BRIDGE_API_KEY")
	setStr(&cfg.Venue.Bridge.SignKey, "FXSCALPER_VENUE_BRIDGE_SIGN_KEY")
	setStr(&cfg.Venue.Bridge.SignSecret, "FXSCALPER_VENUE_BRIDGE_SIGN_SECRET")

	// ── Sources ──
	setStr(&cfg.Signals.Kind, "FXSCALPER_SIGNALS_KIND")
	setStr(&cfg.Signals.URL, "FXSCALPER_SIGNALS_URL")
	setStr(&cfg.Signals.Token, "FXSCALPER_SIGNALS_TOKEN")
	setStr(&cfg.Signals.Cookie, "FXSCALPER_SIGNALS_COOKIE")
	setBool(&cfg.News.Enabled, "FXSCALPER_NEWS_ENABLED")
	setStr(&cfg.News.URL, "FXSCALPER_NEWS_URL")

	// ── Journal ──
	setStr(&cfg.Journal.Driver, "FXSCALPER_JOURNAL_DRIVER")
	setStr(&cfg.Journal.SQLitePath, "FXSCALPER_JOURNAL_SQLITE_PATH")
	setStr(&cfg.Journal.Postgres.DSN, "FXSCALPER_JOURNAL_POSTGRES_DSN")
	setStr(&cfg.Journal.Postgres.Host, "FXSCALPER_JOURNAL_POSTGRES_HOST")
	setInt(&cfg.Journal.Postgres.Port, "FXSCALPER_JOURNAL_POSTGRES_PORT")
	setStr(&cfg.Journal.Postgres.Database, "FXSCALPER_JOURNAL_POSTGRES_DATABASE")
	setStr(&cfg.Journal.Postgres.User, "FXSCALPER_JOURNAL_POSTGRES_USER")
	setStr(&cfg.Journal.Postgres.Password, "FXSCALPER_JOURNAL_POSTGRES_PASSWORD")
	setStr(&cfg.Journal.Postgres.SSLMode, "FXSCALPER_JOURNAL_POSTGRES_SSL_MODE")
	setBool(&cfg.Journal.Postgres.RunMigrations, "FXSCALPER_JOURNAL_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "FXSCALPER_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "FXSCALPER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FXSCALPER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FXSCALPER_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "FXSCALPER_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "FXSCALPER_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "FXSCALPER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FXSCALPER_S3_REGION")
	setStr(&cfg.S3.Bucket, "FXSCALPER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "FXSCALPER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FXSCALPER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "FXSCALPER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "FXSCALPER_S3_FORCE_PATH_STYLE")
	setStr(&cfg.Archive.Cron, "FXSCALPER_ARCHIVE_CRON")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "FXSCALPER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "FXSCALPER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "FXSCALPER_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "FXSCALPER_NOTIFY_EVENTS")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

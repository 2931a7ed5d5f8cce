package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Signals.URL = "https://signals.example/api"
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 30*time.Minute, cfg.Bot.PollInterval.Duration)
	assert.Equal(t, time.Hour, cfg.Bot.NewsInterval.Duration)
	assert.Equal(t, 60*time.Second, cfg.Bot.ErrorCooldown.Duration)
	assert.Equal(t, 0.01, cfg.Risk.RiskFraction)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.True(t, cfg.Strategy.UseMultiTimeframe)
	assert.False(t, cfg.Strategy.UseCorrelation)
	assert.False(t, cfg.Strategy.UseModel)
	assert.Equal(t, "demo", cfg.Accounts.Selected)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "fx.toml", `
[bot]
poll_interval = "5m"
autostart = true

[strategy]
use_correlation = true

[accounts]
selected = "live-1"

[accounts.profiles.live-1]
login = 5550001
server = "Broker-Live"

[accounts.profiles.demo]
login = 42
server = "Broker-Demo"

[venue]
driver = "bridge"

[venue.bridge]
base_url = "http://gateway:8080"

[signals]
kind = "html"
url = "https://example.com/signals"
`)
	t.Setenv("FXSCALPER_ACCOUNT_LIVE_1_PASSWORD", "s3cret")
	t.Setenv("FXSCALPER_SERVER_PORT", "6001")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5*time.Minute, cfg.Bot.PollInterval.Duration)
	assert.True(t, cfg.Bot.Autostart)
	assert.True(t, cfg.Strategy.UseCorrelation)
	assert.True(t, cfg.Strategy.UseMultiTimeframe)
	assert.Equal(t, 6001, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Accounts.Profiles["live-1"].Password)
	assert.Empty(t, cfg.Accounts.Profiles["demo"].Password)
	assert.Equal(t, int64(5550001), cfg.Accounts.Profiles["live-1"].Login)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "fx.yaml", `
bot:
  poll_interval: 90s
  news_interval: 2h
signals:
  kind: static
  static:
    - symbol: EURUSD
      direction: BUY
      entry: 1.1
      sl: 1.099
      tp: 1.103
venue:
  sim:
    balance: 2500
    symbols:
      EURUSD: {point: 0.00001, digits: 5, bid: 1.0999, ask: 1.1}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 90*time.Second, cfg.Bot.PollInterval.Duration)
	assert.Equal(t, 2*time.Hour, cfg.Bot.NewsInterval.Duration)
	require.Len(t, cfg.Signals.Static, 1)
	assert.Equal(t, 1.103, cfg.Signals.Static[0].TP)
	assert.Equal(t, 2500.0, cfg.Venue.Sim.Balance)
	assert.Equal(t, 0.00001, cfg.Venue.Sim.Symbols["EURUSD"].Point)
}

func TestLoadRejectsUnknownTOMLKeys(t *testing.T) {
	path := writeFile(t, "fx.toml", "[bot]\npoll_intervall = \"5m\"\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "bot.poll_intervall")
}

func TestLoadBadDuration(t *testing.T) {
	path := writeFile(t, "fx.toml", "[bot]\npoll_interval = \"soon\"\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Log.Level = "loud"
	cfg.Risk.MinLot = 0
	cfg.Venue.Driver = "fix"
	cfg.Journal.Driver = "mongo"
	cfg.Accounts.Selected = "ghost"
	cfg.Accounts.Profiles = map[string]AccountConfig{"demo": {Login: 1}}
	cfg.Notify.TelegramToken = "t"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		`log: unknown level "loud"`,
		"risk: need 0 < min_lot <= max_lot",
		`venue.driver: unknown value "fix"`,
		`journal.driver: unknown value "mongo"`,
		`accounts: selected "ghost"`,
		"signals: url must not be empty",
		"notify: telegram_token and telegram_chat_id",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestValidateArchiveNeedsS3(t *testing.T) {
	cfg := Defaults()
	cfg.Signals.Kind = "static"
	cfg.Accounts.Selected = "demo"
	cfg.Accounts.Profiles = map[string]AccountConfig{"demo": {Login: 1}}
	cfg.Archive.Cron = "0 3 * * *"
	assert.ErrorContains(t, cfg.Validate(), "archive: scheduling requires s3.enabled")

	cfg.S3.Enabled = true
	cfg.S3.Bucket = "fx-archive"
	assert.NoError(t, cfg.Validate())
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Server.APIKey = "control-key"
	cfg.Redis.Password = "redis-pass"
	cfg.Accounts.Profiles = map[string]AccountConfig{"main": {Login: 1, Password: "hunter2"}}

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Equal(t, "***", out.Redis.Password)
	assert.Equal(t, "***", out.Accounts.Profiles["main"].Password)
	assert.Empty(t, out.S3.SecretKey)

	assert.Equal(t, "hunter2", cfg.Accounts.Profiles["main"].Password)
	out.Notify.Events[0] = "changed"
	assert.Equal(t, "trade_executed", cfg.Notify.Events[0])
}

func TestAccountPasswordEnv(t *testing.T) {
	assert.Equal(t, "FXSCALPER_ACCOUNT_LIVE_1_PASSWORD", AccountPasswordEnv("live-1"))
	assert.Equal(t, "FXSCALPER_ACCOUNT_DEMO_PASSWORD", AccountPasswordEnv("demo"))
}

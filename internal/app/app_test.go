package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fxscalper/internal/config"
	"github.com/alanyoungcy/fxscalper/internal/crypto"
	"github.com/alanyoungcy/fxscalper/internal/domain"
	"github.com/alanyoungcy/fxscalper/internal/venue/sim"
)

func paperConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Server.Enabled = false
	cfg.News.Enabled = false
	cfg.Strategy.UseMultiTimeframe = false
	cfg.Bot.PollInterval.Duration = time.Hour
	cfg.Accounts.Selected = "demo"
	cfg.Accounts.Profiles = map[string]config.AccountConfig{
		"demo": {Login: 1000, Server: "FXSim-Demo"},
	}
	cfg.Venue.Sim.Symbols = map[string]sim.Symbol{
		"EURUSD": {Point: 0.00001, Digits: 5, Bid: 1.1000, Ask: 1.1002},
	}
	cfg.Signals.Kind = "static"
	cfg.Signals.Static = []config.StaticSignalRow{
		{Symbol: "eurusd", Direction: "buy", Entry: 1.1002, SL: 1.0980, TP: 1.1050},
	}
	return &cfg
}

func TestWirePaperTradingExecutesStaticSignal(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := paperConfig()

	c, cleanup, err := Wire(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	assert.Nil(t, c.Journal)
	assert.Nil(t, c.Server)
	assert.Nil(t, c.Archiver)
	require.NotNil(t, c.Dedup)

	started, err := c.Bot.Start()
	require.NoError(t, err)
	require.True(t, started)
	t.Cleanup(c.Bot.Shutdown)

	require.Eventually(t, func() bool { return c.Store.TotalTrades() == 1 }, 5*time.Second, 10*time.Millisecond)

	pos := c.Store.Positions()
	require.Len(t, pos, 1)
	assert.Equal(t, "EURUSD", pos[0].Symbol)
	assert.Equal(t, domain.DirectionBuy, pos[0].Direction)
	assert.Equal(t, "demo", pos[0].Account)
	assert.Equal(t, domain.VenueConnected, c.Store.Status().Venue)
}

func TestWireRejectsUnknownDrivers(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := paperConfig()
	cfg.Venue.Driver = "carrier-pigeon"
	_, _, err := Wire(context.Background(), cfg, logger)
	assert.ErrorContains(t, err, "unknown venue driver")

	cfg = paperConfig()
	cfg.Signals.Static[0].Direction = "sideways"
	_, _, err = Wire(context.Background(), cfg, logger)
	assert.ErrorIs(t, err, domain.ErrInvalidSignal)
}

func TestResolveCredentialsFromVault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")
	v := crypto.NewVault()
	require.NoError(t, v.Seal("live", "hunter2", "master"))
	require.NoError(t, v.Save(path))

	cfg := paperConfig()
	cfg.Accounts.VaultPath = path
	cfg.Accounts.VaultPassword = "master"
	cfg.Accounts.Profiles["live"] = config.AccountConfig{Login: 2000, Server: "FXSim-Live"}
	cfg.Accounts.Profiles["env"] = config.AccountConfig{Login: 3000, Server: "FXSim-Live", Password: "from-env"}

	creds, err := ResolveCredentials(cfg)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", creds["live"].Password)
	assert.Equal(t, "from-env", creds["env"].Password)
	assert.Empty(t, creds["demo"].Password)
	assert.Equal(t, int64(2000), creds["live"].Login)

	cfg.Accounts.VaultPassword = "wrong"
	_, err = ResolveCredentials(cfg)
	assert.Error(t, err)
}

func TestExecutorConfigOverrides(t *testing.T) {
	ec := executorConfig(config.ExecutorConfig{Deviation: 10, TimeInForce: "day", Filling: "fok"})
	assert.Equal(t, 10, ec.Deviation)
	assert.Equal(t, int64(123456), ec.Magic)
	assert.Equal(t, domain.TimeInForceDay, ec.TimeInForce)
	assert.Equal(t, domain.FillPolicyFOK, ec.Filling)
}

package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fxscalper/internal/domain"
	"github.com/alanyoungcy/fxscalper/internal/store/sqlite"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fxscalper.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const staticConfig = `
[signals]
kind = "static"

[[signals.static]]
symbol = "EURUSD"
direction = "BUY"
entry = 1.1
sl = 1.09
tp = 1.12

[news]
enabled = false
`

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "fxscalper "+Version)
}

func TestConfigValidate(t *testing.T) {
	out, err := execute(t, "", "config", "validate", "-c", writeConfig(t, staticConfig))
	require.NoError(t, err)
	assert.Contains(t, out, "configuration OK")

	_, err = execute(t, "", "config", "validate", "-c", writeConfig(t, staticConfig+"\n[risk]\nrisk_fraction = 2.0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "risk_fraction")
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	path := writeConfig(t, staticConfig+`
[server]
api_key = "super-secret-key"
`)
	out, err := execute(t, "", "config", "show", "-c", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "super-secret-key")
	assert.Contains(t, out, `kind = "static"`)
	assert.Contains(t, out, "[server]")
}

func TestVaultSealVerifyList(t *testing.T) {
	t.Setenv("FXSCALPER_VAULT_PASSWORD", "master")
	cfgPath := writeConfig(t, staticConfig)
	vaultPath := filepath.Join(t.TempDir(), "vault.json")

	out, err := execute(t, "hunter2\n", "vault", "seal", "live", "--file", vaultPath, "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "sealed live")

	out, err = execute(t, "", "vault", "verify", "live", "--file", vaultPath, "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "live OK")

	out, err = execute(t, "", "vault", "list", "--file", vaultPath, "-c", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "live\n", out)

	_, err = execute(t, "", "vault", "verify", "demo", "--file", vaultPath, "-c", cfgPath)
	assert.Error(t, err)

	_, err = execute(t, "", "vault", "seal", "demo", "--file", vaultPath, "-c", cfgPath)
	assert.ErrorContains(t, err, "empty secret")
}

func TestLedgerListFromSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	j, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	opened := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	require.NoError(t, j.Positions().Create(context.Background(), domain.Position{
		ID: "p1", OpenedAt: opened, Account: "demo", Symbol: "EURUSD", Direction: domain.DirectionBuy,
		EntryPrice: 1.1, SL: 1.09, TP: 1.12, Volume: 0.25, OrderID: "100001", Status: domain.PositionStatusOpen,
	}))
	require.NoError(t, j.Close())

	path := writeConfig(t, staticConfig+`
[journal]
driver = "sqlite"
sqlite_path = "`+filepath.ToSlash(dbPath)+`"
`)
	out, err := execute(t, "", "ledger", "list", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "EURUSD")
	assert.Contains(t, out, "100001")
	assert.Contains(t, out, "2026-10-15T09:30:00Z")

	out, err = execute(t, "", "ledger", "list", "--status", "closed", "-c", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "100001")
}

func TestCommandsNeedTheirBackends(t *testing.T) {
	path := writeConfig(t, staticConfig)

	_, err := execute(t, "", "ledger", "list", "-c", path)
	assert.ErrorContains(t, err, "nothing to list")

	_, err = execute(t, "", "ledger", "archives", "-c", path)
	assert.ErrorContains(t, err, "s3 is disabled")

	_, err = execute(t, "", "events", "tail", "-c", path)
	assert.ErrorContains(t, err, "redis is disabled")
}

package crypto

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

func TestVaultSealOpenRoundTrip(t *testing.T) {
	t.Parallel()

	v := NewVault()
	require.NoError(t, v.Seal("main", "hunter2", "master"))
	require.NoError(t, v.Seal("demo", "demo-pass", "master"))

	path := filepath.Join(t.TempDir(), "vault.json")
	require.NoError(t, v.Save(path))

	loaded, err := LoadVault(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"demo", "main"}, loaded.Keys())

	got, err := loaded.Open("main", "master")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)
}

func TestVaultOpenFailures(t *testing.T) {
	t.Parallel()

	v := NewVault()
	require.NoError(t, v.Seal("main", "hunter2", "master"))

	_, err := v.Open("main", "wrong")
	assert.ErrorContains(t, err, "decryption failed")

	_, err = v.Open("other", "master")
	assert.True(t, errors.Is(err, domain.ErrNoCredentials))

	_, err = v.Open("main", "")
	assert.Error(t, err)

	assert.Error(t, v.Seal("main", "x", ""))
	assert.Error(t, v.Seal("", "x", "master"))
}

func TestVaultEntriesBoundToAccount(t *testing.T) {
	t.Parallel()

	v := NewVault()
	require.NoError(t, v.Seal("main", "hunter2", "master"))
	v.entries["copy"] = v.entries["main"]

	_, err := v.Open("copy", "master")
	assert.Error(t, err)
}

func TestLoadVaultMissingAndInvalid(t *testing.T) {
	t.Parallel()

	v, err := LoadVault(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Empty(t, v.Keys())

	_, err = ParseVault([]byte(`{"version":9,"entries":{}}`))
	assert.ErrorContains(t, err, "unsupported vault version")

	_, err = ParseVault([]byte(`nope`))
	assert.Error(t, err)
}

func TestRequestSigner(t *testing.T) {
	t.Parallel()

	s := &RequestSigner{Key: "gateway-key", Secret: "topsecret"}
	h := s.HeadersAt("POST", "/orders", `{"symbol":"EURUSD"}`, 1700000000)

	assert.Equal(t, "gateway-key", h[HeaderKey])
	assert.Equal(t, "1700000000", h[HeaderTimestamp])
	assert.Equal(t, Sign([]byte("topsecret"), `1700000000POST/orders{"symbol":"EURUSD"}`), h[HeaderSignature])

	assert.True(t, s.Verify("POST", "/orders", `{"symbol":"EURUSD"}`, "1700000000", h[HeaderSignature]))
	assert.False(t, s.Verify("POST", "/orders", `{"symbol":"GBPUSD"}`, "1700000000", h[HeaderSignature]))
	assert.NotContains(t, s.String(), "topsecret")
}

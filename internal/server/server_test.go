package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fxscalper/internal/bot"
	"github.com/alanyoungcy/fxscalper/internal/domain"
	"github.com/alanyoungcy/fxscalper/internal/server/handler"
	"github.com/alanyoungcy/fxscalper/internal/state"
	"github.com/alanyoungcy/fxscalper/internal/venue"
)

func newTestRoutes(t *testing.T, apiKey string) (http.Handler, *bot.Bot) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	accounts, err := venue.NewAccounts(map[string]domain.Credentials{
		"demo": {Login: 1000, Server: "FXSim-Demo"},
		"live": {Login: 2000, Server: "FXSim-Live"},
	}, "demo")
	require.NoError(t, err)

	st := state.New()
	b := bot.New(bot.Deps{Store: st, Accounts: accounts}, bot.Config{}, logger)
	t.Cleanup(b.Shutdown)

	h := Handlers{
		Health:  handler.NewHealthHandler(st.Status),
		Query:   handler.NewQueryHandler(st, b, accounts, nil, logger),
		Control: handler.NewControlHandler(b, nil, logger),
	}
	return Routes(Config{APIKey: apiKey, CORSOrigins: []string{"https://dash.example"}}, h, nil, logger), b
}

func do(h http.Handler, method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutesControlRequiresKey(t *testing.T) {
	t.Parallel()

	h, b := newTestRoutes(t, "s3cret")
	body := `{"action":"switch_account","account":"live"}`

	rec := do(h, http.MethodPost, "/api/control", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"missing authentication token"}`, rec.Body.String())

	rec = do(h, http.MethodPost, "/api/control", body, map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodPost, "/api/control", body, map[string]string{"Authorization": "Bearer s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","message":"Switched to account live"}`, rec.Body.String())

	rec = do(h, http.MethodGet, "/api/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "live", status["account"])
	assert.Equal(t, "Stopped", status["bot_status"])
	assert.False(t, b.Running())
}

func TestRoutesStrategyUpdateVisibleInQuery(t *testing.T) {
	t.Parallel()

	h, _ := newTestRoutes(t, "")

	rec := do(h, http.MethodPost, "/api/control", `{"action":"update_strategy","use_model":true}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","message":"Strategy updated to version 2"}`, rec.Body.String())

	rec = do(h, http.MethodGet, "/api/strategy", "", nil)
	var cfg domain.StrategyConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, int64(2), cfg.Version)
	assert.True(t, cfg.Flags.UseModel)
	assert.False(t, cfg.Flags.UseMultiTimeframe)
}

func TestRoutesMiddleware(t *testing.T) {
	t.Parallel()

	h, _ := newTestRoutes(t, "")

	rec := do(h, http.MethodGet, "/health", "", map[string]string{
		"Origin":       "https://dash.example",
		"X-Request-ID": "req-1",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://dash.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))

	rec = do(h, http.MethodGet, "/health", "", map[string]string{"Origin": "https://evil.example"})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(h, http.MethodOptions, "/api/control", "", map[string]string{"Origin": "https://dash.example"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(h, http.MethodGet, "/api/control", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(h, http.MethodGet, "/api/history/trades", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

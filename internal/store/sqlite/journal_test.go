package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

func newTestJournal(t *testing.T) (*Journal, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

func position(orderID string, opened time.Time) domain.Position {
	return domain.Position{
		ID: "pos-" + orderID, OpenedAt: opened, Account: "main", Symbol: "EURUSD",
		Direction: domain.DirectionBuy, EntryPrice: 1.1001, SL: 1.095, TP: 1.11,
		Volume: 0.02, OrderID: orderID, Status: domain.PositionStatusOpen,
	}
}

func TestPositionsRoundTrip(t *testing.T) {
	t.Parallel()

	j, _ := newTestJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	require.NoError(t, j.Positions().Create(ctx, position("1", base)))
	require.NoError(t, j.Positions().Create(ctx, position("2", base.Add(time.Minute))))
	assert.ErrorIs(t, j.Positions().Create(ctx, position("1", base)), domain.ErrAlreadyExists)

	got, err := j.Positions().List(ctx, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].OrderID, "newest first")
	assert.Equal(t, domain.DirectionBuy, got[1].Direction)
	assert.True(t, base.Equal(got[1].OpenedAt))
	assert.Nil(t, got[1].ClosedAt)
}

func TestPositionClose(t *testing.T) {
	t.Parallel()

	j, _ := newTestJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	require.NoError(t, j.Positions().Create(ctx, position("1", base)))

	closed := base.Add(time.Hour)
	require.NoError(t, j.Positions().Close(ctx, "1", 42.5, closed))
	require.NoError(t, j.Positions().Close(ctx, "1", -1, closed.Add(time.Hour)), "second close is a no-op")
	assert.ErrorIs(t, j.Positions().Close(ctx, "nope", 1, closed), domain.ErrNotFound)

	got, err := j.Positions().List(ctx, domain.ListOpts{Status: domain.PositionStatusClosed})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 42.5, got[0].Profit)
	require.NotNil(t, got[0].ClosedAt)
	assert.True(t, closed.Equal(*got[0].ClosedAt))

	open, err := j.Positions().List(ctx, domain.ListOpts{Status: domain.PositionStatusOpen})
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestListPaging(t *testing.T) {
	t.Parallel()

	j, _ := newTestJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, j.Positions().Create(ctx, position(id, base.Add(time.Duration(i)*time.Minute))))
	}

	got, err := j.Positions().List(ctx, domain.ListOpts{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].OrderID)
	assert.Equal(t, "b", got[1].OrderID)

	since := base.Add(2 * time.Minute)
	got, err = j.Positions().List(ctx, domain.ListOpts{Since: &since})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestEquityAndAudit(t *testing.T) {
	t.Parallel()

	j, _ := newTestJournal(t)
	ctx := context.Background()
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	require.NoError(t, j.Equity().RecordEquity(ctx, domain.EquitySnapshot{
		Time: at, Account: "main", Balance: 10000, Equity: 9900, Profit: -100, Drawdown: 1,
	}))
	eq, err := j.Equity().ListEquity(ctx, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, eq, 1)
	assert.Equal(t, 9900.0, eq[0].Equity)
	assert.True(t, at.Equal(eq[0].Time))

	j.now = func() time.Time { return at }
	require.NoError(t, j.Audit().Log(ctx, "control.start", map[string]any{"remote": "127.0.0.1"}))
	entries, err := j.Audit().List(ctx, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "control.start", entries[0].Event)
	assert.Equal(t, "127.0.0.1", entries[0].Detail["remote"])
}

func TestReopenKeepsData(t *testing.T) {
	t.Parallel()

	j, path := newTestJournal(t)
	ctx := context.Background()
	require.NoError(t, j.Positions().Create(ctx, position("1", time.Now().UTC())))
	require.NoError(t, j.Close())

	again, err := Open(path)
	require.NoError(t, err)
	defer again.Close()
	got, err := again.Positions().List(ctx, domain.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

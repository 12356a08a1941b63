package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/irfndi/neuratrade/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.NewSQLiteConnection(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, "sqlite"))

	return New(db, "sqlite")
}

func TestStore_CreateAndGetStock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateStock(ctx, "AAPL", "NASDAQ", "USD")
	require.NoError(t, err)
	assert.NotZero(t, id)

	stock, err := s.GetStockByTicker(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", stock.Ticker)
	assert.Equal(t, "active", stock.Status)
	assert.Equal(t, "flat", stock.PositionState)
}

func TestStore_UpdatePositionState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateStock(ctx, "MSFT", "NASDAQ", "USD")
	require.NoError(t, err)

	require.NoError(t, s.UpdatePositionState(ctx, id, "holding"))

	stock, err := s.GetStockByTicker(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "holding", stock.PositionState)
}

func TestStore_SaveAndLoadActiveRulePlan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stockID, err := s.CreateStock(ctx, "GOOG", "NASDAQ", "USD")
	require.NoError(t, err)

	planID, err := s.SaveRulePlan(ctx, stockID, 1, `{"ticker":"GOOG"}`, "initial plan")
	require.NoError(t, err)
	assert.NotZero(t, planID)

	rulesJSON, err := s.GetActiveRulePlanJSON(ctx, stockID)
	require.NoError(t, err)
	assert.Equal(t, `{"ticker":"GOOG"}`, rulesJSON)
}

func TestStore_SaveDailyBarUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stockID, err := s.CreateStock(ctx, "AAPL", "NASDAQ", "USD")
	require.NoError(t, err)

	barDate := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	adj := 100.5
	require.NoError(t, s.SaveDailyBar(ctx, stockID, barDate, 99, 101, 98, 100, &adj, 1_000_000, "eod-feed"))
	require.NoError(t, s.SaveDailyBar(ctx, stockID, barDate, 99, 101, 98, 105, &adj, 1_200_000, "eod-feed"))
}

func TestStore_SaveAndLoadDecision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stockID, err := s.CreateStock(ctx, "AAPL", "NASDAQ", "USD")
	require.NoError(t, err)

	stateKey, payload, err := s.LoadDecisionState(ctx, stockID)
	require.NoError(t, err)
	assert.Empty(t, stateKey)
	assert.Nil(t, payload)

	decision := map[string]interface{}{"decision": "ALLOW", "action": "BUY"}
	require.NoError(t, s.SaveDecision(ctx, stockID, "ALLOW_BUY_E1_ABCDEF01", decision))

	stateKey, payload, err = s.LoadDecisionState(ctx, stockID)
	require.NoError(t, err)
	assert.Equal(t, "ALLOW_BUY_E1_ABCDEF01", stateKey)
	assert.Contains(t, string(payload), "ALLOW")
}

func TestStore_AppendAuditLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stockID, err := s.CreateStock(ctx, "AAPL", "NASDAQ", "USD")
	require.NoError(t, err)

	id, err := s.AppendAuditLog(ctx, &stockID, "decision_emitted", map[string]string{"action": "BUY"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestStore_SaveIndicatorValue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stockID, err := s.CreateStock(ctx, "AAPL", "NASDAQ", "USD")
	require.NoError(t, err)

	value := 101.25
	asOf := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveIndicatorValue(ctx, stockID, "sma20", asOf, &value, "OK", 20, "computed"))
}

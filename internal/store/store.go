// Package store persists the rule-evaluation domain's relational
// schema (spec.md §3 plus original_source's models.py) behind
// internal/database's driver-neutral Querier, so the same code path
// runs against either SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/irfndi/neuratrade/internal/database"
	"github.com/jackc/pgx/v5"
)

// Store is the relational persistence layer for stocks, rule plans,
// daily bars, indicator definitions/values, decision state, and the
// audit trail.
type Store struct {
	db     database.Querier
	driver string
}

// New wraps db for the given driver ("postgres" or "sqlite"), which
// controls bind-parameter formatting.
func New(db database.Querier, driver string) *Store {
	return &Store{db: db, driver: driver}
}

// ph returns the n-th (1-indexed) bind placeholder for the active
// driver: SQLite uses "?", PostgreSQL uses "$n".
func (s *Store) ph(n int) string {
	if s.driver == "postgres" || s.driver == "postgresql" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Stock is a tracked ticker and its current position state.
type Stock struct {
	ID            int64
	Ticker        string
	Market        string
	Currency      string
	Status        string
	PositionState string
	CreatedAt     time.Time
}

// CreateStock inserts a new tracked ticker, defaulting status to
// "active" and position_state to "flat".
func (s *Store) CreateStock(ctx context.Context, ticker, market, currency string) (int64, error) {
	query := fmt.Sprintf(
		`INSERT INTO stocks (ticker, market, currency, status, position_state, created_at) VALUES (%s, %s, %s, 'active', 'flat', %s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4))
	if s.driver == "postgres" || s.driver == "postgresql" {
		query += " RETURNING id"
		row := s.db.QueryRow(ctx, query, ticker, market, currency, time.Now().UTC())
		var id int64
		if err := row.Scan(&id); err != nil {
			return 0, fmt.Errorf("create stock: %w", err)
		}
		return id, nil
	}

	res, err := s.db.Exec(ctx, query, ticker, market, currency, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("create stock: %w", err)
	}
	id, err := lastInsertID(res)
	if err != nil {
		return 0, fmt.Errorf("create stock: %w", err)
	}
	return id, nil
}

// GetStockByTicker loads a stock row by its unique ticker symbol.
func (s *Store) GetStockByTicker(ctx context.Context, ticker string) (Stock, error) {
	query := fmt.Sprintf(
		`SELECT id, ticker, market, currency, status, position_state, created_at FROM stocks WHERE ticker = %s`,
		s.ph(1))
	row := s.db.QueryRow(ctx, query, ticker)

	var st Stock
	if err := row.Scan(&st.ID, &st.Ticker, &st.Market, &st.Currency, &st.Status, &st.PositionState, &st.CreatedAt); err != nil {
		return Stock{}, fmt.Errorf("get stock %q: %w", ticker, err)
	}
	return st, nil
}

// UpdatePositionState flips a stock's position_state after a BUY/SELL
// decision is acted on (flat -> holding or holding -> flat).
func (s *Store) UpdatePositionState(ctx context.Context, stockID int64, positionState string) error {
	query := fmt.Sprintf(`UPDATE stocks SET position_state = %s WHERE id = %s`, s.ph(1), s.ph(2))
	if _, err := s.db.Exec(ctx, query, positionState, stockID); err != nil {
		return fmt.Errorf("update position state for stock %d: %w", stockID, err)
	}
	return nil
}

// SaveRulePlan inserts a new, immutable rule-plan version for a stock
// and marks it active; callers are responsible for deactivating prior
// versions first if only one should be active at a time.
func (s *Store) SaveRulePlan(ctx context.Context, stockID int64, version int, rulesJSON string, notes string) (int64, error) {
	query := fmt.Sprintf(
		`INSERT INTO rule_plans (stock_id, version, is_active, rules_json, created_at, notes) VALUES (%s, %s, true, %s, %s, %s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5))
	if s.driver == "postgres" || s.driver == "postgresql" {
		query += " RETURNING id"
		row := s.db.QueryRow(ctx, query, stockID, version, rulesJSON, time.Now().UTC(), notes)
		var id int64
		if err := row.Scan(&id); err != nil {
			return 0, fmt.Errorf("save rule plan: %w", err)
		}
		return id, nil
	}

	res, err := s.db.Exec(ctx, query, stockID, version, rulesJSON, time.Now().UTC(), notes)
	if err != nil {
		return 0, fmt.Errorf("save rule plan: %w", err)
	}
	return lastInsertID(res)
}

// GetActiveRulePlanJSON returns the rules_json of the active rule plan
// for a stock.
func (s *Store) GetActiveRulePlanJSON(ctx context.Context, stockID int64) (string, error) {
	query := fmt.Sprintf(
		`SELECT rules_json FROM rule_plans WHERE stock_id = %s AND is_active = true ORDER BY version DESC LIMIT 1`,
		s.ph(1))
	row := s.db.QueryRow(ctx, query, stockID)

	var rulesJSON string
	if err := row.Scan(&rulesJSON); err != nil {
		return "", fmt.Errorf("get active rule plan for stock %d: %w", stockID, err)
	}
	return rulesJSON, nil
}

// SaveDailyBar upserts a single OHLCV bar for a stock and date.
func (s *Store) SaveDailyBar(ctx context.Context, stockID int64, barDate time.Time, open, high, low, close float64, adjustedClose *float64, volume int64, source string) error {
	query := fmt.Sprintf(`
		INSERT INTO daily_bars (stock_id, bar_date, open, high, low, close, adjusted_close, volume, source)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)
		ON CONFLICT (stock_id, bar_date) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, adjusted_close = excluded.adjusted_close,
			volume = excluded.volume, source = excluded.source`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8), s.ph(9))

	if _, err := s.db.Exec(ctx, query, stockID, barDate, open, high, low, close, adjustedClose, volume, source); err != nil {
		return fmt.Errorf("save daily bar for stock %d on %s: %w", stockID, barDate.Format("2006-01-02"), err)
	}
	return nil
}

// SaveIndicatorValue upserts the most recently computed value of one
// indicator definition for a stock on a given as-of date.
func (s *Store) SaveIndicatorValue(ctx context.Context, stockID int64, indicatorID string, asOf time.Time, value *float64, status string, lookbackUsed int, source string) error {
	query := fmt.Sprintf(`
		INSERT INTO indicator_values (stock_id, indicator_id, as_of_date, value, status, lookback_used, computed_at, source)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s)
		ON CONFLICT (stock_id, indicator_id, as_of_date) DO UPDATE SET
			value = excluded.value, status = excluded.status,
			lookback_used = excluded.lookback_used, computed_at = excluded.computed_at, source = excluded.source`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8))

	if _, err := s.db.Exec(ctx, query, stockID, indicatorID, asOf, value, status, lookbackUsed, time.Now().UTC(), source); err != nil {
		return fmt.Errorf("save indicator value %s for stock %d: %w", indicatorID, stockID, err)
	}
	return nil
}

// DecisionRecord is what gets persisted after each evaluation: the
// emitted decision plus the state key it hashed to, for
// change-detection on the next run (spec.md §4.4).
type DecisionRecord struct {
	StockID     int64
	StateKey    string
	DecisionRaw json.RawMessage
	UpdatedAt   time.Time
}

// SaveDecision upserts the single decision-state row for a stock,
// overwriting whatever was stored before — decision_states holds only
// the latest decision per stock, not history (that lives in
// audit_logs).
func (s *Store) SaveDecision(ctx context.Context, stockID int64, stateKey string, decision interface{}) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("marshal decision for stock %d: %w", stockID, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO decision_states (stock_id, state_key, decision_json, updated_at)
		VALUES (%s, %s, %s, %s)
		ON CONFLICT (stock_id) DO UPDATE SET
			state_key = excluded.state_key, decision_json = excluded.decision_json, updated_at = excluded.updated_at`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4))

	if _, err := s.db.Exec(ctx, query, stockID, stateKey, string(payload), time.Now().UTC()); err != nil {
		return fmt.Errorf("save decision for stock %d: %w", stockID, err)
	}
	return nil
}

// LoadDecisionState returns the previously-saved state key and raw
// decision JSON for a stock, or (empty, nil, nil) if none exists yet —
// callers treat a never-evaluated stock as "no prior state key", which
// always counts as a change.
func (s *Store) LoadDecisionState(ctx context.Context, stockID int64) (string, json.RawMessage, error) {
	query := fmt.Sprintf(`SELECT state_key, decision_json FROM decision_states WHERE stock_id = %s`, s.ph(1))
	row := s.db.QueryRow(ctx, query, stockID)

	var stateKey, decisionJSON string
	if err := row.Scan(&stateKey, &decisionJSON); err != nil {
		if isNoRows(err) {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("load decision state for stock %d: %w", stockID, err)
	}
	return stateKey, json.RawMessage(decisionJSON), nil
}

// AppendAuditLog records an immutable audit trail entry. id is a UUID
// rather than a surrogate integer so multiple writers can append
// concurrently without coordinating on a sequence.
func (s *Store) AppendAuditLog(ctx context.Context, stockID *int64, eventType string, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal audit payload: %w", err)
	}

	id := uuid.NewString()
	query := fmt.Sprintf(
		`INSERT INTO audit_logs (id, "timestamp", stock_id, event_type, payload_json) VALUES (%s, %s, %s, %s, %s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5))

	if _, err := s.db.Exec(ctx, query, id, time.Now().UTC(), stockID, eventType, string(body)); err != nil {
		return "", fmt.Errorf("append audit log entry %s: %w", eventType, err)
	}
	return id, nil
}

func lastInsertID(res database.Result) (int64, error) {
	type lastInsertIDer interface {
		LastInsertId() (int64, error)
	}
	if li, ok := res.(lastInsertIDer); ok {
		return li.LastInsertId()
	}
	return 0, fmt.Errorf("driver result does not support LastInsertId")
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

package store

import (
	"context"
	"fmt"

	"github.com/irfndi/neuratrade/internal/database"
)

// Migrate creates the schema (stocks, rule_plans, daily_bars,
// indicator_defs, indicator_values, decision_states, audit_logs) if it
// doesn't already exist. Safe to call on every startup.
func Migrate(ctx context.Context, db database.Querier, driver string) error {
	var statements []string
	if driver == "postgres" || driver == "postgresql" {
		statements = postgresSchema
	} else {
		statements = sqliteSchema
	}

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS stocks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticker TEXT UNIQUE NOT NULL,
		market TEXT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		position_state TEXT NOT NULL DEFAULT 'flat',
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rule_plans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		stock_id INTEGER NOT NULL REFERENCES stocks(id),
		version INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		rules_json TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		notes TEXT,
		UNIQUE (stock_id, version)
	)`,
	`CREATE TABLE IF NOT EXISTS daily_bars (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		stock_id INTEGER NOT NULL REFERENCES stocks(id),
		bar_date DATE NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		adjusted_close REAL,
		volume INTEGER NOT NULL,
		source TEXT NOT NULL,
		UNIQUE (stock_id, bar_date)
	)`,
	`CREATE TABLE IF NOT EXISTS indicator_defs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		stock_id INTEGER NOT NULL REFERENCES stocks(id),
		rule_plan_id INTEGER NOT NULL REFERENCES rule_plans(id),
		indicator_id TEXT NOT NULL,
		indicator_type TEXT NOT NULL,
		params_json TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		price_field TEXT NOT NULL,
		use_eod_only BOOLEAN NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (stock_id, rule_plan_id, indicator_id)
	)`,
	`CREATE TABLE IF NOT EXISTS indicator_values (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		stock_id INTEGER NOT NULL REFERENCES stocks(id),
		indicator_id TEXT NOT NULL,
		as_of_date DATE NOT NULL,
		value REAL,
		status TEXT NOT NULL,
		lookback_used INTEGER NOT NULL,
		computed_at DATETIME NOT NULL,
		source TEXT NOT NULL,
		UNIQUE (stock_id, indicator_id, as_of_date)
	)`,
	`CREATE TABLE IF NOT EXISTS decision_states (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		stock_id INTEGER NOT NULL UNIQUE REFERENCES stocks(id),
		state_key TEXT NOT NULL,
		decision_json TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		"timestamp" DATETIME NOT NULL,
		stock_id INTEGER REFERENCES stocks(id),
		event_type TEXT NOT NULL,
		payload_json TEXT NOT NULL
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS stocks (
		id BIGSERIAL PRIMARY KEY,
		ticker TEXT UNIQUE NOT NULL,
		market TEXT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		position_state TEXT NOT NULL DEFAULT 'flat',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rule_plans (
		id BIGSERIAL PRIMARY KEY,
		stock_id BIGINT NOT NULL REFERENCES stocks(id),
		version INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		rules_json TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		notes TEXT,
		UNIQUE (stock_id, version)
	)`,
	`CREATE TABLE IF NOT EXISTS daily_bars (
		id BIGSERIAL PRIMARY KEY,
		stock_id BIGINT NOT NULL REFERENCES stocks(id),
		bar_date DATE NOT NULL,
		open DOUBLE PRECISION NOT NULL,
		high DOUBLE PRECISION NOT NULL,
		low DOUBLE PRECISION NOT NULL,
		close DOUBLE PRECISION NOT NULL,
		adjusted_close DOUBLE PRECISION,
		volume BIGINT NOT NULL,
		source TEXT NOT NULL,
		UNIQUE (stock_id, bar_date)
	)`,
	`CREATE TABLE IF NOT EXISTS indicator_defs (
		id BIGSERIAL PRIMARY KEY,
		stock_id BIGINT NOT NULL REFERENCES stocks(id),
		rule_plan_id BIGINT NOT NULL REFERENCES rule_plans(id),
		indicator_id TEXT NOT NULL,
		indicator_type TEXT NOT NULL,
		params_json TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		price_field TEXT NOT NULL,
		use_eod_only BOOLEAN NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (stock_id, rule_plan_id, indicator_id)
	)`,
	`CREATE TABLE IF NOT EXISTS indicator_values (
		id BIGSERIAL PRIMARY KEY,
		stock_id BIGINT NOT NULL REFERENCES stocks(id),
		indicator_id TEXT NOT NULL,
		as_of_date DATE NOT NULL,
		value DOUBLE PRECISION,
		status TEXT NOT NULL,
		lookback_used INTEGER NOT NULL,
		computed_at TIMESTAMPTZ NOT NULL,
		source TEXT NOT NULL,
		UNIQUE (stock_id, indicator_id, as_of_date)
	)`,
	`CREATE TABLE IF NOT EXISTS decision_states (
		id BIGSERIAL PRIMARY KEY,
		stock_id BIGINT NOT NULL UNIQUE REFERENCES stocks(id),
		state_key TEXT NOT NULL,
		decision_json TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		"timestamp" TIMESTAMPTZ NOT NULL,
		stock_id BIGINT REFERENCES stocks(id),
		event_type TEXT NOT NULL,
		payload_json TEXT NOT NULL
	)`,
}

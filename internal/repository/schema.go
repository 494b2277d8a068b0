package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

const venueATakerFeeRate = 0.0175

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS opportunities (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	scanned_at          TEXT    NOT NULL,
	venue_a_ticker      TEXT    NOT NULL,
	venue_b_token_id    TEXT    NOT NULL,
	venue_a_title       TEXT,
	venue_b_title       TEXT,
	strategy            TEXT,
	venue_a_side        TEXT,
	venue_b_side        TEXT,
	venue_a_cost_cents  REAL,
	venue_b_cost_cents  REAL,
	spread_cents        REAL,
	tier                TEXT,
	venue_a_depth       REAL,
	venue_b_depth       REAL,
	tradeable_units     INTEGER,
	max_locked_profit_usd REAL,
	hours_to_close      REAL,
	venue_a_close_time  TEXT,
	venue_b_close_time  TEXT,
	executed            INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS trades (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
	opportunity_id         INTEGER REFERENCES opportunities(id),
	traded_at              TEXT    NOT NULL,
	venue_a_ticker         TEXT    NOT NULL,
	venue_b_token_id       TEXT    NOT NULL,
	venue_a_side           TEXT,
	venue_b_side           TEXT,
	requested_units        INTEGER,
	venue_a_filled         INTEGER,
	venue_b_filled         INTEGER,
	venue_a_price_cents    REAL,
	venue_b_price_cents    REAL,
	venue_a_cost_usd       REAL,
	venue_b_cost_usd       REAL,
	total_cost_usd         REAL,
	locked_profit_usd      REAL,
	venue_a_fee_usd        REAL,
	net_profit_usd         REAL,
	venue_a_order_id       TEXT,
	venue_b_order_id       TEXT,
	status                 TEXT,
	reason                 TEXT,
	venue_a_balance_before REAL,
	venue_b_balance_before REAL
);

CREATE TABLE IF NOT EXISTS blacklist (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	asset      TEXT    NOT NULL UNIQUE,
	reason     TEXT,
	created_at TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_opp_scanned_at  ON opportunities(scanned_at);
CREATE INDEX IF NOT EXISTS idx_opp_ticker      ON opportunities(venue_a_ticker);
CREATE INDEX IF NOT EXISTS idx_opp_tier        ON opportunities(tier);
CREATE INDEX IF NOT EXISTS idx_trades_traded_at ON trades(traded_at);
CREATE INDEX IF NOT EXISTS idx_trades_status    ON trades(status);
CREATE INDEX IF NOT EXISTS idx_trades_ticker    ON trades(venue_a_ticker);
`

// EnsureSchema opens the bookkeeping tables (creating them on first run) and
// applies any column migrations an older database file is missing. Callers
// own the *sql.DB's lifecycle; EnsureSchema only issues DDL against it.
func EnsureSchema(db *sql.DB, log *zap.Logger) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(createTablesSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	if err := migrate(db, log); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// migrate adds columns introduced after the initial schema and backfills
// them for rows written before the column existed, the same two-step shape
// (ALTER TABLE ADD COLUMN, then UPDATE ... WHERE) an older file on disk
// needs to stay readable by newer code.
func migrate(db *sql.DB, log *zap.Logger) error {
	existing, err := columnsOf(db, "trades")
	if err != nil {
		return err
	}

	type addedColumn struct {
		name, ddlType string
	}
	additions := []addedColumn{
		{"venue_a_fee_usd", "REAL"},
		{"net_profit_usd", "REAL"},
	}

	var backfillFeeAndProfit bool
	for _, col := range additions {
		if existing[col.name] {
			continue
		}
		if _, err := db.Exec(fmt.Sprintf("ALTER TABLE trades ADD COLUMN %s %s", col.name, col.ddlType)); err != nil {
			return fmt.Errorf("add column trades.%s: %w", col.name, err)
		}
		log.Info("repository: migration added column", zap.String("table", "trades"), zap.String("column", col.name))
		if col.name == "venue_a_fee_usd" {
			backfillFeeAndProfit = true
		}
	}

	if backfillFeeAndProfit {
		_, err := db.Exec(`
			UPDATE trades
			SET venue_a_fee_usd = ROUND(venue_a_filled * ?, 4),
			    net_profit_usd = ROUND(locked_profit_usd - (venue_a_filled * ?), 4)
			WHERE status = 'filled' AND venue_a_filled IS NOT NULL
		`, venueATakerFeeRate, venueATakerFeeRate)
		if err != nil {
			return fmt.Errorf("backfill venue_a_fee_usd/net_profit_usd: %w", err)
		}
		log.Info("repository: migration backfilled fee and net profit columns")
	}

	return nil
}

func columnsOf(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

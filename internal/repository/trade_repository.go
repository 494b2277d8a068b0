package repository

import (
	"database/sql"
	"errors"
	"time"

	"arbitrage/internal/models"
)

var ErrTradeNotFound = errors.New("trade not found")

// TradeRepository persists every trade execution attempt, filled or not,
// against the trades table.
type TradeRepository struct {
	db *sql.DB
}

func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create inserts one trade row and sets rec.ID to the new row id.
func (r *TradeRepository) Create(rec *models.TradeRecord) error {
	query := `
		INSERT INTO trades (
			opportunity_id, traded_at,
			venue_a_ticker, venue_b_token_id,
			venue_a_side, venue_b_side,
			requested_units, venue_a_filled, venue_b_filled,
			venue_a_price_cents, venue_b_price_cents,
			venue_a_cost_usd, venue_b_cost_usd, total_cost_usd,
			locked_profit_usd, venue_a_fee_usd, net_profit_usd,
			venue_a_order_id, venue_b_order_id,
			status, reason,
			venue_a_balance_before, venue_b_balance_before
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		RETURNING id`

	err := r.db.QueryRow(
		query,
		rec.OpportunityID,
		rec.TradedAt.UTC().Format(time.RFC3339Nano),
		rec.VenueATicker,
		rec.VenueBTokenID,
		rec.VenueASide,
		rec.VenueBSide,
		rec.RequestedUnits,
		rec.VenueAFilled,
		rec.VenueBFilled,
		rec.VenueAPriceCents,
		rec.VenueBPriceCents,
		rec.VenueACostUSD,
		rec.VenueBCostUSD,
		rec.TotalCostUSD,
		rec.LockedProfitUSD,
		rec.VenueAFeeUSD,
		rec.NetProfitUSD,
		rec.VenueAOrderID,
		rec.VenueBOrderID,
		rec.Status,
		rec.Reason,
		rec.VenueABalanceBefore,
		rec.VenueBBalanceBefore,
	).Scan(&rec.ID)
	if err != nil {
		return err
	}

	return nil
}

// GetByID returns one trade by its row id.
func (r *TradeRepository) GetByID(id int64) (*models.TradeRecord, error) {
	query := `
		SELECT id, opportunity_id, traded_at, venue_a_ticker, venue_b_token_id,
		       venue_a_side, venue_b_side, requested_units, venue_a_filled, venue_b_filled,
		       venue_a_price_cents, venue_b_price_cents,
		       venue_a_cost_usd, venue_b_cost_usd, total_cost_usd,
		       locked_profit_usd, venue_a_fee_usd, net_profit_usd,
		       venue_a_order_id, venue_b_order_id, status, reason,
		       venue_a_balance_before, venue_b_balance_before
		FROM trades
		WHERE id = ?`

	rec := &models.TradeRecord{}
	var tradedAt string

	err := r.db.QueryRow(query, id).Scan(
		&rec.ID, &rec.OpportunityID, &tradedAt, &rec.VenueATicker, &rec.VenueBTokenID,
		&rec.VenueASide, &rec.VenueBSide, &rec.RequestedUnits, &rec.VenueAFilled, &rec.VenueBFilled,
		&rec.VenueAPriceCents, &rec.VenueBPriceCents,
		&rec.VenueACostUSD, &rec.VenueBCostUSD, &rec.TotalCostUSD,
		&rec.LockedProfitUSD, &rec.VenueAFeeUSD, &rec.NetProfitUSD,
		&rec.VenueAOrderID, &rec.VenueBOrderID, &rec.Status, &rec.Reason,
		&rec.VenueABalanceBefore, &rec.VenueBBalanceBefore,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}

	if t, ok := parseOptionalTime(tradedAt); ok {
		rec.TradedAt = t
	}

	return rec, nil
}

// GetByStatus returns trades with the given status, most recent first.
func (r *TradeRepository) GetByStatus(status string, limit int) ([]*models.TradeRecord, error) {
	query := `
		SELECT id, opportunity_id, traded_at, venue_a_ticker, venue_b_token_id, status, reason, net_profit_usd
		FROM trades
		WHERE status = ?
		ORDER BY traded_at DESC
		LIMIT ?`

	rows, err := r.db.Query(query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.TradeRecord
	for rows.Next() {
		rec := &models.TradeRecord{}
		var tradedAt string
		if err := rows.Scan(&rec.ID, &rec.OpportunityID, &tradedAt, &rec.VenueATicker, &rec.VenueBTokenID,
			&rec.Status, &rec.Reason, &rec.NetProfitUSD); err != nil {
			return nil, err
		}
		if t, ok := parseOptionalTime(tradedAt); ok {
			rec.TradedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SumNetProfitSince returns the sum of net_profit_usd across filled trades
// at or after since. The ops server does not call it; /metrics reports net
// profit from the runner's own Prometheus counter.
func (r *TradeRepository) SumNetProfitSince(since time.Time) (float64, error) {
	var total sql.NullFloat64
	err := r.db.QueryRow(
		`SELECT SUM(net_profit_usd) FROM trades WHERE status = 'filled' AND traded_at >= ?`,
		since.UTC().Format(time.RFC3339Nano),
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Float64, nil
}

// CountByStatus returns the number of trades in each terminal status since
// the given time.
func (r *TradeRepository) CountByStatus(since time.Time) (map[string]int64, error) {
	rows, err := r.db.Query(
		`SELECT status, COUNT(*) FROM trades WHERE traded_at >= ? GROUP BY status`,
		since.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// DeleteOlderThan prunes trade rows traded before cutoff, returning the
// number of rows removed.
func (r *TradeRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM trades WHERE traded_at < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

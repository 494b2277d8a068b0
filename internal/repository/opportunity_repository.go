package repository

import (
	"database/sql"
	"errors"
	"time"

	"arbitrage/internal/models"
)

var ErrOpportunityNotFound = errors.New("opportunity not found")

// OpportunityRepository persists every arb opportunity the finder detects,
// traded or not, against the opportunities table.
type OpportunityRepository struct {
	db *sql.DB
}

func NewOpportunityRepository(db *sql.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

// Create inserts one opportunity row and sets rec.ID to the new row id.
func (r *OpportunityRepository) Create(rec *models.OpportunityRecord) error {
	query := `
		INSERT INTO opportunities (
			scanned_at, venue_a_ticker, venue_b_token_id,
			venue_a_title, venue_b_title,
			strategy, venue_a_side, venue_b_side,
			venue_a_cost_cents, venue_b_cost_cents, spread_cents, tier,
			venue_a_depth, venue_b_depth,
			tradeable_units, max_locked_profit_usd,
			hours_to_close, venue_a_close_time, venue_b_close_time,
			executed
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		RETURNING id`

	err := r.db.QueryRow(
		query,
		rec.ScannedAt.UTC().Format(time.RFC3339Nano),
		rec.VenueATicker,
		rec.VenueBTokenID,
		rec.VenueATitle,
		rec.VenueBTitle,
		rec.Strategy,
		rec.VenueASide,
		rec.VenueBSide,
		rec.VenueACostCents,
		rec.VenueBCostCents,
		rec.SpreadCents,
		rec.Tier,
		rec.VenueADepth,
		rec.VenueBDepth,
		rec.TradeableUnits,
		rec.MaxLockedProfitUSD,
		rec.HoursToClose,
		formatOptionalTime(rec.VenueACloseTime),
		formatOptionalTime(rec.VenueBCloseTime),
		boolToInt(rec.Executed),
	).Scan(&rec.ID)
	if err != nil {
		return err
	}

	return nil
}

// MarkExecuted flips executed=1 on an opportunity after a trade is attempted
// against it.
func (r *OpportunityRepository) MarkExecuted(id int64) error {
	result, err := r.db.Exec(`UPDATE opportunities SET executed = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrOpportunityNotFound
	}
	return nil
}

// GetByID returns one opportunity by its row id.
func (r *OpportunityRepository) GetByID(id int64) (*models.OpportunityRecord, error) {
	query := `
		SELECT id, scanned_at, venue_a_ticker, venue_b_token_id,
		       venue_a_title, venue_b_title,
		       strategy, venue_a_side, venue_b_side,
		       venue_a_cost_cents, venue_b_cost_cents, spread_cents, tier,
		       venue_a_depth, venue_b_depth,
		       tradeable_units, max_locked_profit_usd,
		       hours_to_close, venue_a_close_time, venue_b_close_time,
		       executed
		FROM opportunities
		WHERE id = ?`

	rec := &models.OpportunityRecord{}
	var scannedAt string
	var venueACloseTime, venueBCloseTime sql.NullString
	var executed int

	err := r.db.QueryRow(query, id).Scan(
		&rec.ID, &scannedAt, &rec.VenueATicker, &rec.VenueBTokenID,
		&rec.VenueATitle, &rec.VenueBTitle,
		&rec.Strategy, &rec.VenueASide, &rec.VenueBSide,
		&rec.VenueACostCents, &rec.VenueBCostCents, &rec.SpreadCents, &rec.Tier,
		&rec.VenueADepth, &rec.VenueBDepth,
		&rec.TradeableUnits, &rec.MaxLockedProfitUSD,
		&rec.HoursToClose, &venueACloseTime, &venueBCloseTime,
		&executed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOpportunityNotFound
		}
		return nil, err
	}

	rec.Executed = executed != 0
	if t, ok := parseOptionalTime(scannedAt); ok {
		rec.ScannedAt = t
	}
	rec.VenueACloseTime = parseOptionalTimePtr(venueACloseTime)
	rec.VenueBCloseTime = parseOptionalTimePtr(venueBCloseTime)

	return rec, nil
}

// GetUnexecutedSince returns opportunities scanned at or after since that
// were never traded, most recent first — the backlog an operator would
// review to judge how much size the finder is leaving on the table.
func (r *OpportunityRepository) GetUnexecutedSince(since time.Time) ([]*models.OpportunityRecord, error) {
	query := `
		SELECT id, scanned_at, venue_a_ticker, venue_b_token_id, spread_cents, tier, tradeable_units, max_locked_profit_usd
		FROM opportunities
		WHERE executed = 0 AND scanned_at >= ?
		ORDER BY scanned_at DESC`

	rows, err := r.db.Query(query, since.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.OpportunityRecord
	for rows.Next() {
		rec := &models.OpportunityRecord{}
		var scannedAt string
		if err := rows.Scan(&rec.ID, &scannedAt, &rec.VenueATicker, &rec.VenueBTokenID,
			&rec.SpreadCents, &rec.Tier, &rec.TradeableUnits, &rec.MaxLockedProfitUSD); err != nil {
			return nil, err
		}
		if t, ok := parseOptionalTime(scannedAt); ok {
			rec.ScannedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountByTier returns how many opportunities were logged per tier since the
// given time. The ops server does not call it.
func (r *OpportunityRepository) CountByTier(since time.Time) (map[string]int64, error) {
	rows, err := r.db.Query(
		`SELECT tier, COUNT(*) FROM opportunities WHERE scanned_at >= ? GROUP BY tier`,
		since.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var tier string
		var count int64
		if err := rows.Scan(&tier, &count); err != nil {
			return nil, err
		}
		counts[tier] = count
	}
	return counts, rows.Err()
}

// DeleteOlderThan prunes opportunity rows scanned before cutoff, returning
// the number of rows removed.
func (r *OpportunityRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM opportunities WHERE scanned_at < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatOptionalTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseOptionalTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseOptionalTimePtr(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, ok := parseOptionalTime(s.String)
	if !ok {
		return nil
	}
	return &t
}

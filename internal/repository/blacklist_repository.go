package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"arbitrage/internal/models"
)

var (
	ErrBlacklistEntryNotFound = errors.New("blacklist entry not found")
	ErrBlacklistEntryExists   = errors.New("asset already blacklisted")
)

// BlacklistRepository persists crypto assets the matcher must never pair,
// keyed by the same Asset string models.Market.Asset and matcher.bucketKey
// use.
type BlacklistRepository struct {
	db *sql.DB
}

func NewBlacklistRepository(db *sql.DB) *BlacklistRepository {
	return &BlacklistRepository{db: db}
}

func (r *BlacklistRepository) Create(entry *models.BlacklistEntry) error {
	entry.CreatedAt = time.Now()
	asset := strings.ToUpper(entry.Asset)

	res, err := r.db.Exec(
		`INSERT INTO blacklist (asset, reason, created_at) VALUES (?, ?, ?)`,
		asset, entry.Reason, entry.CreatedAt,
	)
	if err != nil {
		if isBlacklistUniqueViolation(err) {
			return ErrBlacklistEntryExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

func (r *BlacklistRepository) GetAll() ([]*models.BlacklistEntry, error) {
	rows, err := r.db.Query(`SELECT id, asset, reason, created_at FROM blacklist ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBlacklistRows(rows)
}

func (r *BlacklistRepository) GetByAsset(asset string) (*models.BlacklistEntry, error) {
	entry := &models.BlacklistEntry{}
	err := r.db.QueryRow(
		`SELECT id, asset, reason, created_at FROM blacklist WHERE asset = ?`,
		strings.ToUpper(asset),
	).Scan(&entry.ID, &entry.Asset, &entry.Reason, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBlacklistEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

// Contains is the hot-path query the runner calls for each crypto pair on
// every slow refresh to filter matched pairs; it avoids materializing a full entry for a check
// that discards everything but a bool.
func (r *BlacklistRepository) Contains(asset string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM blacklist WHERE asset = ?)`, strings.ToUpper(asset)).Scan(&exists)
	return exists, err
}

func (r *BlacklistRepository) Delete(asset string) error {
	res, err := r.db.Exec(`DELETE FROM blacklist WHERE asset = ?`, strings.ToUpper(asset))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBlacklistEntryNotFound
	}
	return nil
}

func (r *BlacklistRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM blacklist`).Scan(&count)
	return count, err
}

func scanBlacklistRows(rows *sql.Rows) ([]*models.BlacklistEntry, error) {
	var entries []*models.BlacklistEntry
	for rows.Next() {
		entry := &models.BlacklistEntry{}
		if err := rows.Scan(&entry.ID, &entry.Asset, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func isBlacklistUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

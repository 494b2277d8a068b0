package repository

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"arbitrage/internal/models"
)

func TestNewBlacklistRepository(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewBlacklistRepository(db)
	if repo == nil {
		t.Fatal("NewBlacklistRepository returned nil")
	}
	if repo.db != db {
		t.Error("db not set correctly")
	}
}

func TestBlacklistRepositoryCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO blacklist`).
		WithArgs("BTC", "cross-venue oracle mismatch", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(9, 1))

	entry := &models.BlacklistEntry{Asset: "btc", Reason: "cross-venue oracle mismatch"}
	if err := NewBlacklistRepository(db).Create(entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.ID != 9 {
		t.Fatalf("expected id 9, got %d", entry.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestBlacklistRepositoryCreate_Duplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO blacklist`).
		WillReturnError(errors.New("UNIQUE constraint failed: blacklist.asset"))

	err = NewBlacklistRepository(db).Create(&models.BlacklistEntry{Asset: "ETH"})
	if !errors.Is(err, ErrBlacklistEntryExists) {
		t.Fatalf("expected ErrBlacklistEntryExists, got %v", err)
	}
}

func TestBlacklistRepositoryContains(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("SOL").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := NewBlacklistRepository(db).Contains("sol")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected Contains to report true")
	}
}

func TestBlacklistRepositoryGetByAsset_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, asset, reason, created_at`).
		WithArgs("DOGE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "asset", "reason", "created_at"}))

	_, err = NewBlacklistRepository(db).GetByAsset("doge")
	if !errors.Is(err, ErrBlacklistEntryNotFound) {
		t.Fatalf("expected ErrBlacklistEntryNotFound, got %v", err)
	}
}

func TestBlacklistRepositoryDelete_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM blacklist`).
		WithArgs("XRP").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewBlacklistRepository(db).Delete("xrp")
	if !errors.Is(err, ErrBlacklistEntryNotFound) {
		t.Fatalf("expected ErrBlacklistEntryNotFound, got %v", err)
	}
}

func TestBlacklistRepositoryCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM blacklist`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := NewBlacklistRepository(db).Count()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

type DB struct {
	*sql.DB
	logger *zerolog.Logger
	retry  RetryPolicy
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		// Создаем директорию для БД, если её нет
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection serializes transactions
	// and keeps :memory: databases shared.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	logger.Info().Str("path", path).Msg("database initialized")

	return &DB{
		DB:     sqlDB,
		logger: logger,
		retry: RetryPolicy{
			MaxRetries:    3,
			InitialDelay:  20 * time.Millisecond,
			MaxDelay:      500 * time.Millisecond,
			BackoffFactor: 2,
		},
	}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
            id INTEGER PRIMARY KEY,
            tier TEXT,
            deposit_balance INTEGER NOT NULL DEFAULT 0 CHECK (deposit_balance >= 0),
            has_paid_deposit BOOLEAN NOT NULL DEFAULT 0,
            successful_meetups INTEGER NOT NULL DEFAULT 0,
            is_trusted_member BOOLEAN NOT NULL DEFAULT 0,
            verified_at DATETIME,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            version INTEGER NOT NULL DEFAULT 1
        )`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            client_id INTEGER NOT NULL REFERENCES accounts(id),
            kind TEXT NOT NULL,
            amount INTEGER NOT NULL,
            balance_after INTEGER NOT NULL,
            reference TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS creators (
            id INTEGER PRIMARY KEY,
            display_name TEXT NOT NULL,
            photos_price INTEGER NOT NULL DEFAULT 0,
            contact_price INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS creator_rates (
            creator_id INTEGER NOT NULL REFERENCES creators(id),
            location_type TEXT NOT NULL,
            duration_kind TEXT NOT NULL,
            price INTEGER NOT NULL,
            PRIMARY KEY (creator_id, location_type, duration_kind)
        )`,
		`CREATE TABLE IF NOT EXISTS unlocks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            client_id INTEGER NOT NULL REFERENCES accounts(id),
            creator_id INTEGER NOT NULL,
            resource_kind TEXT NOT NULL,
            price_paid INTEGER NOT NULL,
            created_at DATETIME NOT NULL,
            UNIQUE (client_id, creator_id, resource_kind)
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            client_id INTEGER NOT NULL REFERENCES accounts(id),
            creator_id INTEGER NOT NULL,
            scheduled_date TEXT NOT NULL,
            scheduled_time TEXT NOT NULL,
            location_type TEXT NOT NULL,
            duration_kind TEXT NOT NULL,
            total_price INTEGER NOT NULL,
            deposit_amount INTEGER NOT NULL,
            client_code TEXT NOT NULL,
            creator_code TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            status_note TEXT NOT NULL DEFAULT '',
            special_requests TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            version INTEGER NOT NULL DEFAULT 1
        )`,
		`CREATE TABLE IF NOT EXISTS earnings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            creator_id INTEGER NOT NULL,
            client_id INTEGER NOT NULL,
            source TEXT NOT NULL,
            reference TEXT NOT NULL,
            amount INTEGER NOT NULL,
            created_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS creator_stats (
            creator_id INTEGER PRIMARY KEY,
            total_earnings INTEGER NOT NULL DEFAULT 0,
            completed_bookings INTEGER NOT NULL DEFAULT 0,
            photo_unlocks INTEGER NOT NULL DEFAULT 0,
            contact_unlocks INTEGER NOT NULL DEFAULT 0,
            updated_at DATETIME NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_ledger_client ON ledger_entries(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_unlocks_client ON unlocks(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_client ON bookings(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_creator ON bookings(creator_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_earnings_creator ON earnings(creator_id, created_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// withTx runs fn in a transaction, retrying when SQLite reports the database busy.
// fn must use only tx for queries.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = db.runTx(ctx, fn)
		if err == nil || !isBusy(err) || attempt > db.retry.MaxRetries {
			return err
		}
		delay := db.retry.NextDelay(attempt)
		db.logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("database busy, retrying transaction")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (db *DB) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// utcNow keeps stored timestamps in one zone so textual comparisons order correctly.
func utcNow() time.Time {
	return time.Now().UTC()
}

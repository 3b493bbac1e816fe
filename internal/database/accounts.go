package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trustmeet/internal/models"
)

const accountColumns = `id, tier, deposit_balance, has_paid_deposit, successful_meetups,
	is_trusted_member, verified_at, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.ClientAccount, error) {
	var (
		acc        models.ClientAccount
		tier       sql.NullString
		verifiedAt sql.NullTime
	)
	err := row.Scan(
		&acc.ID, &tier, &acc.DepositBalance, &acc.HasPaidDeposit, &acc.SuccessfulMeetups,
		&acc.IsTrustedMember, &verifiedAt, &acc.CreatedAt, &acc.UpdatedAt, &acc.Version,
	)
	if err != nil {
		return nil, err
	}
	if tier.Valid && tier.String != "" {
		t := tier.String
		acc.Tier = &t
	}
	if verifiedAt.Valid {
		v := verifiedAt.Time
		acc.VerifiedAt = &v
	}
	return &acc, nil
}

// CreateAccount registers an unverified client with a zero balance.
func (db *DB) CreateAccount(ctx context.Context, clientID int64) (*models.ClientAccount, error) {
	now := utcNow()
	query := `INSERT INTO accounts (id, tier, deposit_balance, has_paid_deposit, successful_meetups,
				is_trusted_member, created_at, updated_at, version)
			VALUES (?, NULL, 0, 0, 0, 0, ?, ?, 1)`
	if _, err := db.ExecContext(ctx, query, clientID, now, now); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("account %d already exists: %w", clientID, models.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return &models.ClientAccount{ID: clientID, CreatedAt: now, UpdatedAt: now, Version: 1}, nil
}

// GetAccount reads a client account.
func (db *DB) GetAccount(ctx context.Context, clientID int64) (*models.ClientAccount, error) {
	return getAccount(ctx, db, clientID)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getAccount(ctx context.Context, q queryRower, clientID int64) (*models.ClientAccount, error) {
	acc, err := scanAccount(q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, clientID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %d: %w", clientID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

// WriteAccount persists every mutable field of acc if its version is still current,
// and records entry (when not nil) in the same transaction. acc.Version is bumped on success.
func (db *DB) WriteAccount(ctx context.Context, acc *models.ClientAccount, entry *models.LedgerEntry) error {
	now := utcNow()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var tier any
		if acc.Tier != nil {
			tier = *acc.Tier
		}
		var verifiedAt any
		if acc.VerifiedAt != nil {
			verifiedAt = *acc.VerifiedAt
		}

		query := `UPDATE accounts SET tier = ?, deposit_balance = ?, has_paid_deposit = ?,
					successful_meetups = ?, is_trusted_member = ?, verified_at = ?,
					updated_at = ?, version = version + 1
				WHERE id = ? AND version = ?`
		result, err := tx.ExecContext(ctx, query,
			tier, acc.DepositBalance, acc.HasPaidDeposit,
			acc.SuccessfulMeetups, acc.IsTrustedMember, verifiedAt,
			now, acc.ID, acc.Version,
		)
		if err != nil {
			return fmt.Errorf("failed to write account: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			if _, err := getAccount(ctx, tx, acc.ID); err != nil {
				return err
			}
			return fmt.Errorf("account %d: %w", acc.ID, models.ErrConflict)
		}

		if entry != nil {
			entry.ClientID = acc.ID
			entry.BalanceAfter = acc.DepositBalance
			if err := insertLedgerEntry(ctx, tx, entry, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	acc.Version++
	acc.UpdatedAt = now
	return nil
}

// Credit adds amount to the balance atomically and returns the updated account.
func (db *DB) Credit(ctx context.Context, clientID, amount int64, kind, reference string) (*models.ClientAccount, error) {
	if amount <= 0 {
		return nil, models.ErrInvalidAmount
	}
	var acc *models.ClientAccount
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		now := utcNow()
		result, err := tx.ExecContext(ctx,
			`UPDATE accounts SET deposit_balance = deposit_balance + ?, updated_at = ?, version = version + 1 WHERE id = ?`,
			amount, now, clientID)
		if err != nil {
			return fmt.Errorf("failed to credit account: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return fmt.Errorf("account %d: %w", clientID, models.ErrNotFound)
		}

		acc, err = getAccount(ctx, tx, clientID)
		if err != nil {
			return err
		}
		return insertLedgerEntry(ctx, tx, &models.LedgerEntry{
			ClientID:     clientID,
			Kind:         kind,
			Amount:       amount,
			BalanceAfter: acc.DepositBalance,
			Reference:    reference,
		}, now)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// Debit subtracts amount atomically. It fails with ErrInsufficientBalance instead of
// letting the balance go negative.
func (db *DB) Debit(ctx context.Context, clientID, amount int64, kind, reference string) (*models.ClientAccount, error) {
	var acc *models.ClientAccount
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := debitTx(ctx, tx, clientID, amount, kind, reference); err != nil {
			return err
		}
		var err error
		acc, err = getAccount(ctx, tx, clientID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// debitTx is a conditional read-modify-write: the update only matches while the
// balance still covers amount.
func debitTx(ctx context.Context, tx *sql.Tx, clientID, amount int64, kind, reference string) (int64, error) {
	if amount <= 0 {
		return 0, models.ErrInvalidAmount
	}
	now := utcNow()
	result, err := tx.ExecContext(ctx,
		`UPDATE accounts SET deposit_balance = deposit_balance - ?, updated_at = ?, version = version + 1
		 WHERE id = ? AND deposit_balance >= ?`,
		amount, now, clientID, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to debit account: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		if _, err := getAccount(ctx, tx, clientID); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("debit %d from account %d: %w", amount, clientID, models.ErrInsufficientBalance)
	}

	var balance int64
	if err := tx.QueryRowContext(ctx, `SELECT deposit_balance FROM accounts WHERE id = ?`, clientID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}

	err = insertLedgerEntry(ctx, tx, &models.LedgerEntry{
		ClientID:     clientID,
		Kind:         kind,
		Amount:       -amount,
		BalanceAfter: balance,
		Reference:    reference,
	}, now)
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func insertLedgerEntry(ctx context.Context, tx *sql.Tx, entry *models.LedgerEntry, now time.Time) error {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (client_id, kind, amount, balance_after, reference, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ClientID, entry.Kind, entry.Amount, entry.BalanceAfter, entry.Reference, now)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	entry.CreatedAt = now
	return nil
}

// ListLedgerEntries returns a client's balance movements, oldest first.
func (db *DB) ListLedgerEntries(ctx context.Context, clientID int64) ([]*models.LedgerEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, client_id, kind, amount, balance_after, reference, created_at
		 FROM ledger_entries WHERE client_id = ? ORDER BY id ASC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		e := &models.LedgerEntry{}
		if err := rows.Scan(&e.ID, &e.ClientID, &e.Kind, &e.Amount, &e.BalanceAfter, &e.Reference, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

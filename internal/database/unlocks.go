package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"trustmeet/internal/models"
)

// IsUnlocked reports whether a record exists for the key.
func (db *DB) IsUnlocked(ctx context.Context, clientID, creatorID int64, kind string) (bool, error) {
	var exists int
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM unlocks WHERE client_id = ? AND creator_id = ? AND resource_kind = ?)`,
		clientID, creatorID, kind,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check unlock: %w", err)
	}
	return exists == 1, nil
}

// ListUnlocks returns every unlock owned by a client.
func (db *DB) ListUnlocks(ctx context.Context, clientID int64) ([]*models.UnlockRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, client_id, creator_id, resource_kind, price_paid, created_at
		 FROM unlocks WHERE client_id = ? ORDER BY id ASC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unlocks: %w", err)
	}
	defer rows.Close()

	var records []*models.UnlockRecord
	for rows.Next() {
		r := &models.UnlockRecord{}
		if err := rows.Scan(&r.ID, &r.ClientID, &r.CreatorID, &r.ResourceKind, &r.PricePaid, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unlock: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// PurchaseUnlocks inserts records, debits total from the client and credits the
// creator, all or nothing. The unique key on (client, creator, kind) decides
// concurrent purchases: the loser gets ErrAlreadyUnlocked.
func (db *DB) PurchaseUnlocks(ctx context.Context, records []*models.UnlockRecord, total int64, entryKind string) error {
	if len(records) == 0 {
		return fmt.Errorf("no unlock records: %w", models.ErrInvalidRequest)
	}
	now := utcNow()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		clientID := records[0].ClientID
		creatorID := records[0].CreatorID
		delta := statsDelta{}

		for _, r := range records {
			if err := insertUnlockTx(ctx, tx, r, now); err != nil {
				return err
			}
			delta.earnings += r.PricePaid
			switch r.ResourceKind {
			case models.ResourcePhotos:
				delta.photoUnlocks++
			case models.ResourceContact:
				delta.contactUnlocks++
			}
		}

		reference := fmt.Sprintf("creator:%d", creatorID)
		if _, err := debitTx(ctx, tx, clientID, total, entryKind, reference); err != nil {
			return err
		}

		for _, r := range records {
			earning := &models.Earning{
				CreatorID: r.CreatorID,
				ClientID:  r.ClientID,
				Source:    models.EarningUnlock,
				Reference: fmt.Sprintf("unlock:%d:%s", r.ID, r.ResourceKind),
				Amount:    r.PricePaid,
			}
			if err := insertEarningTx(ctx, tx, earning, now); err != nil {
				return err
			}
		}
		return bumpStatsTx(ctx, tx, creatorID, delta, now)
	})
	if err != nil {
		for _, r := range records {
			r.ID = 0
		}
		return err
	}
	for _, r := range records {
		r.CreatedAt = now
	}
	return nil
}

func insertUnlockTx(ctx context.Context, tx *sql.Tx, r *models.UnlockRecord, now time.Time) error {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO unlocks (client_id, creator_id, resource_kind, price_paid, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.ClientID, r.CreatorID, r.ResourceKind, r.PricePaid, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s of creator %d for client %d: %w", r.ResourceKind, r.CreatorID, r.ClientID, models.ErrAlreadyUnlocked)
		}
		return fmt.Errorf("failed to insert unlock: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	r.ID = id
	return nil
}

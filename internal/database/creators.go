package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trustmeet/internal/models"
)

// UpsertCreator stores a creator profile and replaces its rate table.
func (db *DB) UpsertCreator(ctx context.Context, c *models.Creator) error {
	now := utcNow()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		query := `INSERT INTO creators (id, display_name, photos_price, contact_price, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					display_name = excluded.display_name,
					photos_price = excluded.photos_price,
					contact_price = excluded.contact_price,
					updated_at = excluded.updated_at`
		if _, err := tx.ExecContext(ctx, query, c.ID, c.DisplayName, c.PhotosPrice, c.ContactPrice, now, now); err != nil {
			return fmt.Errorf("failed to upsert creator: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM creator_rates WHERE creator_id = ?`, c.ID); err != nil {
			return fmt.Errorf("failed to clear creator rates: %w", err)
		}
		for location, byDuration := range c.Rates {
			for duration, price := range byDuration {
				_, err := tx.ExecContext(ctx,
					`INSERT INTO creator_rates (creator_id, location_type, duration_kind, price) VALUES (?, ?, ?, ?)`,
					c.ID, location, duration, price)
				if err != nil {
					return fmt.Errorf("failed to insert creator rate: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	return nil
}

// GetCreator reads a creator profile with its rate table.
func (db *DB) GetCreator(ctx context.Context, creatorID int64) (*models.Creator, error) {
	var c models.Creator
	err := db.QueryRowContext(ctx,
		`SELECT id, display_name, photos_price, contact_price, created_at, updated_at FROM creators WHERE id = ?`,
		creatorID,
	).Scan(&c.ID, &c.DisplayName, &c.PhotosPrice, &c.ContactPrice, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("creator %d: %w", creatorID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get creator: %w", err)
	}

	c.Rates, err = db.rateTable(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCreatorRateTable returns the current rates of a creator. A creator without
// rates yields an empty table, an unknown creator ErrNotFound.
func (db *DB) GetCreatorRateTable(ctx context.Context, creatorID int64) (models.RateTable, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM creators WHERE id = ?)`, creatorID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check creator: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("creator %d: %w", creatorID, models.ErrNotFound)
	}
	return db.rateTable(ctx, creatorID)
}

func (db *DB) rateTable(ctx context.Context, creatorID int64) (models.RateTable, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT location_type, duration_kind, price FROM creator_rates WHERE creator_id = ?`, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get creator rates: %w", err)
	}
	defer rows.Close()

	rates := make(models.RateTable)
	for rows.Next() {
		var location, duration string
		var price int64
		if err := rows.Scan(&location, &duration, &price); err != nil {
			return nil, fmt.Errorf("failed to scan creator rate: %w", err)
		}
		if rates[location] == nil {
			rates[location] = make(map[string]int64)
		}
		rates[location][duration] = price
	}
	return rates, rows.Err()
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trustmeet/internal/models"
)

func insertEarningTx(ctx context.Context, tx *sql.Tx, e *models.Earning, now time.Time) error {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO earnings (creator_id, client_id, source, reference, amount, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.CreatorID, e.ClientID, e.Source, e.Reference, e.Amount, now)
	if err != nil {
		return fmt.Errorf("failed to insert earning: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	e.ID = id
	e.CreatedAt = now
	return nil
}

// statsDelta is an increment applied to a creator's aggregates.
type statsDelta struct {
	earnings       int64
	bookings       int64
	photoUnlocks   int64
	contactUnlocks int64
}

func bumpStatsTx(ctx context.Context, tx *sql.Tx, creatorID int64, d statsDelta, now time.Time) error {
	query := `INSERT INTO creator_stats (creator_id, total_earnings, completed_bookings, photo_unlocks, contact_unlocks, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(creator_id) DO UPDATE SET
				total_earnings = total_earnings + excluded.total_earnings,
				completed_bookings = completed_bookings + excluded.completed_bookings,
				photo_unlocks = photo_unlocks + excluded.photo_unlocks,
				contact_unlocks = contact_unlocks + excluded.contact_unlocks,
				updated_at = excluded.updated_at`
	_, err := tx.ExecContext(ctx, query, creatorID, d.earnings, d.bookings, d.photoUnlocks, d.contactUnlocks, now)
	if err != nil {
		return fmt.Errorf("failed to update creator stats: %w", err)
	}
	return nil
}

// GetCreatorStats returns the aggregates of a creator; creators without revenue get zeroes.
func (db *DB) GetCreatorStats(ctx context.Context, creatorID int64) (*models.CreatorStats, error) {
	stats := models.CreatorStats{CreatorID: creatorID}
	err := db.QueryRowContext(ctx,
		`SELECT total_earnings, completed_bookings, photo_unlocks, contact_unlocks, updated_at
		 FROM creator_stats WHERE creator_id = ?`, creatorID,
	).Scan(&stats.TotalEarnings, &stats.CompletedBookings, &stats.PhotoUnlocks, &stats.ContactUnlocks, &stats.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &stats, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get creator stats: %w", err)
	}
	return &stats, nil
}

// ListEarnings returns a creator's earnings in [from, to). Zero bounds are open.
func (db *DB) ListEarnings(ctx context.Context, creatorID int64, from, to time.Time) ([]*models.Earning, error) {
	query := `SELECT id, creator_id, client_id, source, reference, amount, created_at
			FROM earnings WHERE creator_id = ?`
	args := []any{creatorID}
	if !from.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, to.UTC())
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get earnings: %w", err)
	}
	defer rows.Close()

	var earnings []*models.Earning
	for rows.Next() {
		e := &models.Earning{}
		if err := rows.Scan(&e.ID, &e.CreatorID, &e.ClientID, &e.Source, &e.Reference, &e.Amount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan earning: %w", err)
		}
		earnings = append(earnings, e)
	}
	return earnings, rows.Err()
}

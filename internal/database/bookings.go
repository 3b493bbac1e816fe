package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trustmeet/internal/models"
)

const bookingColumns = `id, client_id, creator_id, scheduled_date, scheduled_time, location_type,
	duration_kind, total_price, deposit_amount, client_code, creator_code, status,
	status_note, special_requests, created_at, updated_at, version`

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.ClientID, &b.CreatorID, &b.ScheduledDate, &b.ScheduledTime, &b.LocationType,
		&b.DurationKind, &b.TotalPrice, &b.DepositAmount, &b.ClientCode, &b.CreatorCode, &b.Status,
		&b.StatusNote, &b.SpecialRequests, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBookingWithDeposit inserts a pending booking and debits its deposit from the
// client in one transaction. Either both happen or neither does.
func (db *DB) CreateBookingWithDeposit(ctx context.Context, booking *models.Booking) error {
	now := utcNow()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		query := `INSERT INTO bookings (
					client_id, creator_id, scheduled_date, scheduled_time, location_type,
					duration_kind, total_price, deposit_amount, client_code, creator_code,
					status, status_note, special_requests, created_at, updated_at, version
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`
		result, err := tx.ExecContext(ctx, query,
			booking.ClientID,
			booking.CreatorID,
			booking.ScheduledDate,
			booking.ScheduledTime,
			booking.LocationType,
			booking.DurationKind,
			booking.TotalPrice,
			booking.DepositAmount,
			booking.ClientCode,
			booking.CreatorCode,
			booking.Status,
			booking.StatusNote,
			booking.SpecialRequests,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert booking in tx: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id in tx: %w", err)
		}

		reference := fmt.Sprintf("booking:%d", id)
		if _, err := debitTx(ctx, tx, booking.ClientID, booking.DepositAmount, models.EntryBookingDeposit, reference); err != nil {
			return err
		}
		booking.ID = id
		return nil
	})
	if err != nil {
		booking.ID = 0
		return err
	}
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return getBooking(ctx, db, id)
}

func getBooking(ctx context.Context, q queryRower, id int64) (*models.Booking, error) {
	b, err := scanBooking(q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// UpdateBookingStatus moves a booking from expectedFrom to status only if neither the
// status nor the version changed since it was read. Otherwise ErrConflict.
func (db *DB) UpdateBookingStatus(ctx context.Context, id, fromVersion int64, expectedFrom, status, note string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return updateStatusTx(ctx, tx, id, fromVersion, expectedFrom, status, note, utcNow())
	})
}

func updateStatusTx(ctx context.Context, tx *sql.Tx, id, fromVersion int64, expectedFrom, status, note string, now time.Time) error {
	query := `UPDATE bookings SET status = ?, status_note = ?, version = version + 1, updated_at = ?
			WHERE id = ? AND status = ? AND version = ?`
	result, err := tx.ExecContext(ctx, query, status, note, now, id, expectedFrom, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := getBooking(ctx, tx, id); err != nil {
			return err
		}
		return fmt.Errorf("booking %d: %w", id, models.ErrConflict)
	}
	return nil
}

// RescheduleBooking moves a booking to rescheduled and replaces its schedule.
// Verification codes are kept.
func (db *DB) RescheduleBooking(ctx context.Context, id, fromVersion int64, expectedFrom, date, clock, note string) error {
	now := utcNow()
	query := `UPDATE bookings SET status = ?, scheduled_date = ?, scheduled_time = ?, status_note = ?,
				version = version + 1, updated_at = ?
			WHERE id = ? AND status = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, models.StatusRescheduled, date, clock, note, now, id, expectedFrom, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to reschedule booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := db.GetBooking(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("booking %d: %w", id, models.ErrConflict)
	}
	return nil
}

// CompleteBooking marks a confirmed booking completed, counts the meetup for the client,
// recomputes trusted status and credits the creator, in one transaction.
func (db *DB) CompleteBooking(ctx context.Context, booking *models.Booking, earning *models.Earning) error {
	now := utcNow()
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := updateStatusTx(ctx, tx, booking.ID, booking.Version, models.StatusConfirmed, models.StatusCompleted, booking.StatusNote, now); err != nil {
			return err
		}

		acc, err := getAccount(ctx, tx, booking.ClientID)
		if err != nil {
			return err
		}
		acc.SuccessfulMeetups++
		trusted := acc.TrustedAt(now)
		_, err = tx.ExecContext(ctx,
			`UPDATE accounts SET successful_meetups = ?, is_trusted_member = ?, updated_at = ?, version = version + 1 WHERE id = ?`,
			acc.SuccessfulMeetups, trusted, now, acc.ID)
		if err != nil {
			return fmt.Errorf("failed to record meetup: %w", err)
		}

		if err := insertEarningTx(ctx, tx, earning, now); err != nil {
			return err
		}
		return bumpStatsTx(ctx, tx, booking.CreatorID, statsDelta{earnings: earning.Amount, bookings: 1}, now)
	})
}

// ListClientBookings returns a client's bookings, newest first.
func (db *DB) ListClientBookings(ctx context.Context, clientID int64) ([]*models.Booking, error) {
	return db.listBookings(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE client_id = ? ORDER BY id DESC`, clientID)
}

// ListCreatorBookings returns a creator's bookings, optionally filtered by status, newest first.
func (db *DB) ListCreatorBookings(ctx context.Context, creatorID int64, status string) ([]*models.Booking, error) {
	if status == "" {
		return db.listBookings(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE creator_id = ? ORDER BY id DESC`, creatorID)
	}
	return db.listBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE creator_id = ? AND status = ? ORDER BY id DESC`, creatorID, status)
}

func (db *DB) listBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

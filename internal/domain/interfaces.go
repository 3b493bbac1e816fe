package domain

import (
	"context"
	"time"

	"trustmeet/internal/models"
)

type AccountRepository interface {
	CreateAccount(ctx context.Context, clientID int64) (*models.ClientAccount, error)
	GetAccount(ctx context.Context, clientID int64) (*models.ClientAccount, error)
	WriteAccount(ctx context.Context, acc *models.ClientAccount, entry *models.LedgerEntry) error
	Credit(ctx context.Context, clientID, amount int64, kind, reference string) (*models.ClientAccount, error)
	Debit(ctx context.Context, clientID, amount int64, kind, reference string) (*models.ClientAccount, error)
	ListLedgerEntries(ctx context.Context, clientID int64) ([]*models.LedgerEntry, error)
}

type UnlockRepository interface {
	IsUnlocked(ctx context.Context, clientID, creatorID int64, kind string) (bool, error)
	ListUnlocks(ctx context.Context, clientID int64) ([]*models.UnlockRecord, error)
	PurchaseUnlocks(ctx context.Context, records []*models.UnlockRecord, total int64, entryKind string) error
}

type BookingRepository interface {
	CreateBookingWithDeposit(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id, fromVersion int64, expectedFrom, status, note string) error
	RescheduleBooking(ctx context.Context, id, fromVersion int64, expectedFrom, date, clock, note string) error
	CompleteBooking(ctx context.Context, booking *models.Booking, earning *models.Earning) error
	ListClientBookings(ctx context.Context, clientID int64) ([]*models.Booking, error)
	ListCreatorBookings(ctx context.Context, creatorID int64, status string) ([]*models.Booking, error)
}

type CreatorRepository interface {
	UpsertCreator(ctx context.Context, c *models.Creator) error
	GetCreator(ctx context.Context, creatorID int64) (*models.Creator, error)
	GetCreatorRateTable(ctx context.Context, creatorID int64) (models.RateTable, error)
}

type EarningsRepository interface {
	GetCreatorStats(ctx context.Context, creatorID int64) (*models.CreatorStats, error)
	ListEarnings(ctx context.Context, creatorID int64, from, to time.Time) ([]*models.Earning, error)
}

// PurchaseGuard short-lived locks and per-client request counters shared between instances.
// A guard is owned by the token it was acquired with; Release with any other token
// leaves it in place.
type PurchaseGuard interface {
	Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
	CheckRateLimit(ctx context.Context, clientID int64, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type StatementWriter interface {
	WriteStatement(creator *models.Creator, stats *models.CreatorStats, earnings []*models.Earning, from, to time.Time) (string, error)
}

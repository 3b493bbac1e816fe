package service

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"trustmeet/internal/database"
	"trustmeet/internal/events"
	"trustmeet/internal/models"
	"trustmeet/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db       *database.DB
	guard    *repository.MemoryGuardRepository
	bus      *events.EventBus
	ledger   *LedgerService
	unlocks  *UnlockService
	bookings *BookingService
	earnings *EarningsService
	creators *CreatorService

	mu        sync.Mutex
	published []string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(filepath.Join(t.TempDir(), "service.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{
		db:    db,
		guard: repository.NewMemoryGuardRepository(),
		bus:   events.NewEventBus(&logger),
	}
	env.bus.SubscribeAll(func(e *events.Event) error {
		env.mu.Lock()
		env.published = append(env.published, e.Type)
		env.mu.Unlock()
		return nil
	})

	env.ledger = NewLedgerService(db, env.bus, &logger)
	env.unlocks = NewUnlockService(db, db, db, env.guard, env.bus, time.Minute, &logger)
	env.bookings = NewBookingService(db, db, db, env.guard, env.bus, BookingOptions{Location: time.UTC}, &logger)
	env.earnings = NewEarningsService(db, db, nil, &logger)
	env.creators = NewCreatorService(db, &logger)
	return env
}

func (e *testEnv) events() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.published...)
}

// verifiedClient registers a client and assigns tierID.
func (e *testEnv) verifiedClient(t *testing.T, clientID int64, tierID string) *models.ClientAccount {
	t.Helper()
	ctx := context.Background()
	_, err := e.ledger.Register(ctx, clientID)
	require.NoError(t, err)
	acc, err := e.ledger.AssignTier(ctx, clientID, tierID)
	require.NoError(t, err)
	return acc
}

func (e *testEnv) creator(t *testing.T, id int64) *models.Creator {
	t.Helper()
	c := &models.Creator{
		ID:           id,
		DisplayName:  "Creator",
		PhotosPrice:  3000,
		ContactPrice: 5000,
		Rates: models.RateTable{
			models.LocationIncall: {
				models.DurationOneHour:  80000,
				models.DurationTwoHours: 150000,
			},
		},
	}
	require.NoError(t, e.creators.Save(context.Background(), c))
	return c
}

func (e *testEnv) balance(t *testing.T, clientID int64) int64 {
	t.Helper()
	acc, err := e.db.GetAccount(context.Background(), clientID)
	require.NoError(t, err)
	return acc.DepositBalance
}

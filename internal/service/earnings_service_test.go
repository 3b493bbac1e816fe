package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"trustmeet/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStatementWriter struct {
	mock.Mock
}

func (m *mockStatementWriter) WriteStatement(c *models.Creator, s *models.CreatorStats, e []*models.Earning, from, to time.Time) (string, error) {
	args := m.Called(c, s, e, from, to)
	return args.String(0), args.Error(1)
}

func TestEarningForBooking(t *testing.T) {
	e := EarningForBooking(&models.Booking{ID: 4, ClientID: 1, CreatorID: 2, TotalPrice: 80000})
	assert.Equal(t, int64(80000), e.Amount)
	assert.Equal(t, models.EarningBooking, e.Source)
	assert.Equal(t, "booking:4", e.Reference)
}

func TestEarningsService_UnlocksAndBookings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.verifiedClient(t, 1, models.TierBossman)
	env.creator(t, 7)

	_, err := env.unlocks.PurchaseBundle(ctx, 1, 7, 3000, 5000)
	require.NoError(t, err)

	stats, err := env.earnings.Stats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7200), stats.TotalEarnings)
	assert.Equal(t, int64(1), stats.PhotoUnlocks)
	assert.Equal(t, int64(1), stats.ContactUnlocks)
	assert.Equal(t, int64(0), stats.CompletedBookings)

	list, err := env.earnings.List(ctx, 7, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = env.earnings.List(ctx, 7, time.Now(), time.Now().Add(-time.Hour))
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
}

func TestEarningsService_ExportStatement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.creator(t, 7)

	writer := new(mockStatementWriter)
	logger := zerolog.New(io.Discard)
	s := NewEarningsService(env.db, env.db, writer, &logger)

	writer.On("WriteStatement", mock.MatchedBy(func(c *models.Creator) bool { return c.ID == 7 }),
		mock.Anything, mock.Anything, time.Time{}, time.Time{}).Return("/tmp/statement.xlsx", nil).Once()

	path, err := s.ExportStatement(ctx, 7, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/statement.xlsx", path)
	writer.AssertExpectations(t)

	writer.On("WriteStatement", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("disk full")).Once()
	_, err = s.ExportStatement(ctx, 7, time.Time{}, time.Time{})
	assert.Error(t, err)

	_, err = s.ExportStatement(ctx, 404, time.Time{}, time.Time{})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = env.earnings.ExportStatement(ctx, 7, time.Time{}, time.Time{})
	assert.Error(t, err, "no writer configured")
}

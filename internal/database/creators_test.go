package database

import (
	"context"
	"testing"
	"time"

	"trustmeet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertAndGetCreator(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	c := &models.Creator{
		ID:           5,
		DisplayName:  "Nova",
		PhotosPrice:  3000,
		ContactPrice: 5000,
		Rates: models.RateTable{
			models.LocationIncall: {models.DurationOneHour: 40000, models.DurationTwoHours: 70000},
		},
	}
	require.NoError(t, db.UpsertCreator(ctx, c))

	got, err := db.GetCreator(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Nova", got.DisplayName)
	price, ok := got.Rates.Price(models.LocationIncall, models.DurationTwoHours)
	assert.True(t, ok)
	assert.Equal(t, int64(70000), price)
	assert.False(t, got.Rates.Offers(models.LocationOutcall))

	c.Rates = models.RateTable{models.LocationOutcall: {models.DurationOvernight: 200000}}
	c.PhotosPrice = 3500
	require.NoError(t, db.UpsertCreator(ctx, c))

	rates, err := db.GetCreatorRateTable(ctx, 5)
	require.NoError(t, err)
	assert.False(t, rates.Offers(models.LocationIncall))
	assert.True(t, rates.Offers(models.LocationOutcall))

	got, err = db.GetCreator(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3500), got.PhotosPrice)

	_, err = db.GetCreator(ctx, 6)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = db.GetCreatorRateTable(ctx, 6)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetCreatorRateTable_NoRates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertCreator(ctx, &models.Creator{ID: 8, DisplayName: "Lena"}))

	rates, err := db.GetCreatorRateTable(ctx, 8)
	require.NoError(t, err)
	assert.Empty(t, rates)
}

func TestEarningsQueries(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	fundedAccount(t, db, 1, 20000)

	for _, kind := range []string{models.ResourcePhotos, models.ResourceContact} {
		rec := &models.UnlockRecord{ClientID: 1, CreatorID: 9, ResourceKind: kind, PricePaid: 2000}
		require.NoError(t, db.PurchaseUnlocks(ctx, []*models.UnlockRecord{rec}, 2000, models.EntryUnlock))
	}

	all, err := db.ListEarnings(ctx, 9, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, models.EarningUnlock, all[0].Source)

	future, err := db.ListEarnings(ctx, 9, time.Now().Add(time.Hour), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, future)

	window, err := db.ListEarnings(ctx, 9, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, window, 2)

	stats, err := db.GetCreatorStats(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), stats.TotalEarnings)
	assert.Equal(t, int64(1), stats.PhotoUnlocks)
	assert.Equal(t, int64(1), stats.ContactUnlocks)

	empty, err := db.GetCreatorStats(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.TotalEarnings)
}

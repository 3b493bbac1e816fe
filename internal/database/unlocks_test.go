package database

import (
	"context"
	"sync"
	"testing"

	"trustmeet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fundedAccount(t *testing.T, db *DB, clientID, balance int64) {
	t.Helper()
	ctx := context.Background()
	_, err := db.CreateAccount(ctx, clientID)
	require.NoError(t, err)
	if balance > 0 {
		_, err = db.Credit(ctx, clientID, balance, models.EntryTopUp, "")
		require.NoError(t, err)
	}
}

func TestPurchaseUnlocks(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	fundedAccount(t, db, 1, 10000)

	rec := &models.UnlockRecord{ClientID: 1, CreatorID: 7, ResourceKind: models.ResourcePhotos, PricePaid: 3000}
	require.NoError(t, db.PurchaseUnlocks(ctx, []*models.UnlockRecord{rec}, 3000, models.EntryUnlock))
	assert.NotZero(t, rec.ID)

	ok, err := db.IsUnlocked(ctx, 1, 7, models.ResourcePhotos)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.IsUnlocked(ctx, 1, 7, models.ResourceContact)
	require.NoError(t, err)
	assert.False(t, ok)

	again := &models.UnlockRecord{ClientID: 1, CreatorID: 7, ResourceKind: models.ResourcePhotos, PricePaid: 3000}
	err = db.PurchaseUnlocks(ctx, []*models.UnlockRecord{again}, 3000, models.EntryUnlock)
	assert.ErrorIs(t, err, models.ErrAlreadyUnlocked)

	acc, err := db.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), acc.DepositBalance)

	stats, err := db.GetCreatorStats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), stats.TotalEarnings)
	assert.Equal(t, int64(1), stats.PhotoUnlocks)

	records, err := db.ListUnlocks(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestPurchaseUnlocks_AllOrNothing(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	fundedAccount(t, db, 1, 5000)

	// insufficient balance rolls back both inserts
	bundle := []*models.UnlockRecord{
		{ClientID: 1, CreatorID: 7, ResourceKind: models.ResourcePhotos, PricePaid: 2700},
		{ClientID: 1, CreatorID: 7, ResourceKind: models.ResourceContact, PricePaid: 4500},
	}
	err := db.PurchaseUnlocks(ctx, bundle, 7200, models.EntryBundleUnlock)
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)

	records, err := db.ListUnlocks(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, records)

	// one key already unlocked fails the whole bundle without debit
	single := &models.UnlockRecord{ClientID: 1, CreatorID: 7, ResourceKind: models.ResourceContact, PricePaid: 1000}
	require.NoError(t, db.PurchaseUnlocks(ctx, []*models.UnlockRecord{single}, 1000, models.EntryUnlock))

	bundle = []*models.UnlockRecord{
		{ClientID: 1, CreatorID: 7, ResourceKind: models.ResourcePhotos, PricePaid: 900},
		{ClientID: 1, CreatorID: 7, ResourceKind: models.ResourceContact, PricePaid: 900},
	}
	err = db.PurchaseUnlocks(ctx, bundle, 1800, models.EntryBundleUnlock)
	assert.ErrorIs(t, err, models.ErrAlreadyUnlocked)

	ok, err := db.IsUnlocked(ctx, 1, 7, models.ResourcePhotos)
	require.NoError(t, err)
	assert.False(t, ok)

	acc, err := db.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), acc.DepositBalance)
}

func TestConcurrentUnlockPurchase(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	fundedAccount(t, db, 1, 100000)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := &models.UnlockRecord{ClientID: 1, CreatorID: 3, ResourceKind: models.ResourceContact, PricePaid: 5000}
			results <- db.PurchaseUnlocks(ctx, []*models.UnlockRecord{rec}, 5000, models.EntryUnlock)
		}()
	}
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		if err == nil {
			success++
			continue
		}
		assert.ErrorIs(t, err, models.ErrAlreadyUnlocked)
	}
	assert.Equal(t, 1, success)

	acc, err := db.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(95000), acc.DepositBalance)
}

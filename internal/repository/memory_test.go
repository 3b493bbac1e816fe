package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuardRepository(t *testing.T) {
	repo := NewMemoryGuardRepository()
	ctx := context.Background()

	t.Run("AcquireAndRelease", func(t *testing.T) {
		ok, err := repo.Acquire(ctx, "a", "t1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, _ = repo.Acquire(ctx, "a", "t2", time.Minute)
		assert.False(t, ok)

		require.NoError(t, repo.Release(ctx, "a", "t1"))
		ok, _ = repo.Acquire(ctx, "a", "t2", time.Minute)
		assert.True(t, ok)
	})

	t.Run("StaleOwnerCannotRelease", func(t *testing.T) {
		ok, _ := repo.Acquire(ctx, "d", "old", 20*time.Millisecond)
		require.True(t, ok)
		time.Sleep(30 * time.Millisecond)

		ok, _ = repo.Acquire(ctx, "d", "new", time.Minute)
		require.True(t, ok)

		// the expired holder finishes late
		require.NoError(t, repo.Release(ctx, "d", "old"))
		ok, _ = repo.Acquire(ctx, "d", "third", time.Minute)
		assert.False(t, ok)
	})

	t.Run("GuardExpires", func(t *testing.T) {
		ok, _ := repo.Acquire(ctx, "b", "t1", 20*time.Millisecond)
		assert.True(t, ok)
		time.Sleep(30 * time.Millisecond)
		ok, _ = repo.Acquire(ctx, "b", "t2", 20*time.Millisecond)
		assert.True(t, ok)
	})

	t.Run("SingleWinner", func(t *testing.T) {
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if ok, _ := repo.Acquire(ctx, "c", fmt.Sprint(i), time.Minute); ok {
					wins.Add(1)
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("RateLimit", func(t *testing.T) {
		clientID := int64(456)
		allowed, _ := repo.CheckRateLimit(ctx, clientID, 2, 50*time.Millisecond)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, clientID, 2, 50*time.Millisecond)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, clientID, 2, 50*time.Millisecond)
		assert.False(t, allowed)

		// Wait for expiry
		time.Sleep(60 * time.Millisecond)
		allowed, _ = repo.CheckRateLimit(ctx, clientID, 2, 50*time.Millisecond)
		assert.True(t, allowed)
	})
}

package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"trustmeet/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverGuardRepository uses primary until it errors, then serves from fallback
// and retries primary once per recoveryInterval.
type FailoverGuardRepository struct {
	primary  domain.PurchaseGuard
	fallback domain.PurchaseGuard
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverGuardRepository(primary, fallback domain.PurchaseGuard, logger *zerolog.Logger) *FailoverGuardRepository {
	return &FailoverGuardRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverGuardRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Since(r.lastCheck) > recoveryInterval
}

func (r *FailoverGuardRepository) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary guard repository failed, falling back to memory")
	}
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

func (r *FailoverGuardRepository) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary guard repository recovered")
	}
}

func (r *FailoverGuardRepository) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if r.usePrimary() {
		ok, err := r.primary.Acquire(ctx, key, token, ttl)
		if err == nil {
			r.markUp()
			return ok, nil
		}
		r.markDown(err)
	}
	return r.fallback.Acquire(ctx, key, token, ttl)
}

func (r *FailoverGuardRepository) Release(ctx context.Context, key, token string) error {
	// guard may have been taken on either side
	_ = r.fallback.Release(ctx, key, token)
	if r.usePrimary() {
		if err := r.primary.Release(ctx, key, token); err != nil {
			r.markDown(err)
		}
	}
	return nil
}

func (r *FailoverGuardRepository) CheckRateLimit(ctx context.Context, clientID int64, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, clientID, limit, window)
		if err == nil {
			r.markUp()
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, clientID, limit, window)
}

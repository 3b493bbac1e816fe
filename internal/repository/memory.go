package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryGuardRepository keeps guards and counters in process memory.
// Used when Redis is not configured or unreachable.
type MemoryGuardRepository struct {
	mu         sync.Mutex
	guards     map[string]guardEntry
	rateLimits map[int64]*rateLimitEntry
}

type guardEntry struct {
	token     string
	expiresAt time.Time
}

func NewMemoryGuardRepository() *MemoryGuardRepository {
	return &MemoryGuardRepository{
		guards:     make(map[string]guardEntry),
		rateLimits: make(map[int64]*rateLimitEntry),
	}
}

func (r *MemoryGuardRepository) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.guards[key]; ok && now.Before(g.expiresAt) {
		return false, nil
	}
	r.guards[key] = guardEntry{token: token, expiresAt: now.Add(ttl)}
	return true, nil
}

// Release drops the guard only while token still owns it.
func (r *MemoryGuardRepository) Release(ctx context.Context, key, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.guards[key]; ok && g.token == token {
		delete(r.guards, key)
	}
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryGuardRepository) CheckRateLimit(ctx context.Context, clientID int64, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.rateLimits[clientID]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[clientID] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}

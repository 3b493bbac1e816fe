package repository

import (
	"context"
	"fmt"
	"time"

	"trustmeet/internal/config"

	"github.com/redis/go-redis/v9"
)

type RedisGuardRepository struct {
	client *redis.Client
	prefix string
}

// releaseScript удаляет ключ, только если он всё ещё принадлежит владельцу токена
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	client := redis.NewClient(options)

	return client
}

func NewRedisGuardRepository(client *redis.Client) *RedisGuardRepository {
	return &RedisGuardRepository{
		client: client,
		prefix: "trustmeet:",
	}
}

// Acquire takes the lock named key for ttl. It returns false when someone else holds it.
func (r *RedisGuardRepository) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	ok, err := r.client.SetNX(ctx, r.prefix+"guard:"+key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire guard in redis: %w", err)
	}
	return ok, nil
}

// Release is a compare-and-delete: a guard that expired and was taken by someone
// else is left alone.
func (r *RedisGuardRepository) Release(ctx context.Context, key, token string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := releaseScript.Run(ctx, r.client, []string{r.prefix + "guard:" + key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release guard in redis: %w", err)
	}
	return nil
}

func (r *RedisGuardRepository) CheckRateLimit(ctx context.Context, clientID int64, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("%srate_limit:%d", r.prefix, clientID)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}

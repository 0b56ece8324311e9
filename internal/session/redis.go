package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps flags in Redis so they survive restarts and are shared
// between instances.
type RedisStore struct {
	rdb *redis.Client
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and checks the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{rdb: rdb}, nil
}

// SetFlag stores value with ttl.
func (s *RedisStore) SetFlag(ctx context.Context, sessionID, key, value string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, flagKey(sessionID, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("set session flag: %w", err)
	}
	return nil
}

// PopFlag atomically reads and deletes the flag.
func (s *RedisStore) PopFlag(ctx context.Context, sessionID, key string) (string, bool, error) {
	value, err := s.rdb.GetDel(ctx, flagKey(sessionID, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("pop session flag: %w", err)
	}
	return value, true, nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

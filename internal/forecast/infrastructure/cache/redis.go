package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	forecast "campus-pulse/internal/forecast/domain"
)

const defaultKey = "campus-pulse:forecast:last"

// RedisStore shares the last forecast snapshot between service instances.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// RedisOption configures the store.
type RedisOption func(*RedisStore)

// WithKey overrides the Redis key.
func WithKey(key string) RedisOption {
	return func(s *RedisStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithTTL expires the snapshot after ttl. Zero keeps it until overwritten.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client, opts ...RedisOption) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("forecast cache: nil redis client")
	}
	s := &RedisStore{client: client, key: defaultKey}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load reads the snapshot; a missing key yields nil.
func (s *RedisStore) Load(ctx context.Context) (*forecast.Snapshot, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("forecast cache: get: %w", err)
	}
	var snapshot forecast.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("forecast cache: decode: %w", err)
	}
	return &snapshot, nil
}

// Store writes the snapshot as JSON.
func (s *RedisStore) Store(ctx context.Context, snapshot forecast.Snapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("forecast cache: set: %w", err)
	}
	return nil
}

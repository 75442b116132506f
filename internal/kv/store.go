package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Store is a small typed key-value abstraction for durable client state
// (form-step resumption, feature-flag overrides). Values are JSON-encoded.
type Store interface {
	// Get decodes the value at key into out. Returns (false, nil) when the
	// key is absent.
	Get(ctx context.Context, key string, out interface{}) (bool, error)
	// Set encodes value as JSON and stores it under key. A zero ttl means
	// no expiry.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// RedisStore persists values in Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "kv"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("kv get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("kv decode %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}

// MemoryStore is a process-local Store. State is lost on restart, so
// behavior degrades gracefully but loses durability.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	s.mu.RLock()
	data, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("kv decode %s: %w", key, err)
	}
	return true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv encode %s: %w", key, err)
	}
	s.mu.Lock()
	s.values[key] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

// FallbackStore wraps a primary Store and degrades to an in-memory map when
// the primary is unreachable. Writes that fail on the primary land in the
// fallback so a session keeps working within the process.
type FallbackStore struct {
	primary  Store
	fallback *MemoryStore
	logger   zerolog.Logger

	warnOnce sync.Once
}

var _ Store = (*FallbackStore)(nil)

func NewFallbackStore(primary Store, logger zerolog.Logger) *FallbackStore {
	return &FallbackStore{
		primary:  primary,
		fallback: NewMemoryStore(),
		logger:   logger.With().Str("component", "kv_fallback").Logger(),
	}
}

func (s *FallbackStore) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	ok, err := s.primary.Get(ctx, key, out)
	if err == nil {
		return ok, nil
	}
	s.warn(err)
	return s.fallback.Get(ctx, key, out)
}

func (s *FallbackStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := s.primary.Set(ctx, key, value, ttl); err != nil {
		s.warn(err)
		return s.fallback.Set(ctx, key, value, ttl)
	}
	return nil
}

func (s *FallbackStore) Delete(ctx context.Context, key string) error {
	if err := s.primary.Delete(ctx, key); err != nil {
		s.warn(err)
		return s.fallback.Delete(ctx, key)
	}
	return nil
}

func (s *FallbackStore) warn(err error) {
	s.warnOnce.Do(func() {
		s.logger.Warn().Err(err).Msg("primary kv store unavailable, using in-memory fallback")
	})
}

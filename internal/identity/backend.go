package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrMiss is returned by a Backend that holds no entry for a profile.
var ErrMiss = errors.New("cache miss")

// Backend stores cache entries.
type Backend interface {
	Load(ctx context.Context, profileID string) (*Entry, error)
	Save(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, profileID string) error
}

// MemoryBackend keeps entries in process memory with no expiry.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]*Entry)}
}

func (m *MemoryBackend) Load(ctx context.Context, profileID string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[profileID]
	if !ok {
		return nil, ErrMiss
	}
	return e.clone(), nil
}

func (m *MemoryBackend) Save(ctx context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ProfileID] = e.clone()
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, profileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, profileID)
	return nil
}

// Len returns the number of cached entries.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// DefaultRedisPrefix is the key prefix RedisBackend uses when none is given.
const DefaultRedisPrefix = "fieldsync:identity:"

// RedisBackend stores entries as JSON in Redis with a TTL.
type RedisBackend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisBackend creates a RedisBackend. A zero ttl stores entries without
// expiry; an empty prefix uses DefaultRedisPrefix.
func NewRedisBackend(client *redis.Client, prefix string, ttl time.Duration) *RedisBackend {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisBackend{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisBackend) key(profileID string) string {
	return r.prefix + profileID
}

func (r *RedisBackend) Load(ctx context.Context, profileID string) (*Entry, error) {
	val, err := r.client.Get(ctx, r.key(profileID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", profileID, err)
	}

	var e Entry
	if err := json.Unmarshal([]byte(val), &e); err != nil {
		return nil, fmt.Errorf("decode entry %s: %w", profileID, err)
	}
	return &e, nil
}

func (r *RedisBackend) Save(ctx context.Context, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry %s: %w", e.ProfileID, err)
	}
	if err := r.client.Set(ctx, r.key(e.ProfileID), string(data), r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", e.ProfileID, err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, profileID string) error {
	if err := r.client.Del(ctx, r.key(profileID)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", profileID, err)
	}
	return nil
}

package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pkgredis "github.com/angelmondragon/eltafawook-admin/pkg/redis"
)

// Store holds availability snapshots per scope (branch code). Writes are
// last-write-wins and never expire.
type Store interface {
	Get(ctx context.Context, scope string, key Key) (Snapshot, bool, error)
	Set(ctx context.Context, scope string, key Key, snap Snapshot) error
	Reset(ctx context.Context, scope string) error
}

// MemoryStore is the in-process store used when Redis is not configured.
type MemoryStore struct {
	mu     sync.RWMutex
	scopes map[string]map[Key]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scopes: map[string]map[Key]Snapshot{}}
}

func (m *MemoryStore) Get(_ context.Context, scope string, key Key) (Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.scopes[scope][key]
	return snap, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, scope string, key Key, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, ok := m.scopes[scope]
	if !ok {
		entries = map[Key]Snapshot{}
		m.scopes[scope] = entries
	}
	entries[key] = snap
	return nil
}

func (m *MemoryStore) Reset(_ context.Context, scope string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scopes, scope)
	return nil
}

type redisBackend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Generation(ctx context.Context, scope string) (int64, error)
	BumpGeneration(ctx context.Context, scope string) (int64, error)
	AvailabilityKey(scope string, generation int64, sku, grade, teacherID string) string
}

// RedisStore shares snapshots between operator processes. Reset bumps the
// scope generation so stale keys are never read again.
type RedisStore struct {
	client redisBackend
}

// NewRedisStore wraps a *pkgredis.Client (or any compatible backend).
func NewRedisStore(client redisBackend) *RedisStore {
	return &RedisStore{client: client}
}

var _ redisBackend = (*pkgredis.Client)(nil)

func (r *RedisStore) Get(ctx context.Context, scope string, key Key) (Snapshot, bool, error) {
	k, err := r.key(ctx, scope, key)
	if err != nil {
		return Snapshot{}, false, err
	}
	raw, err := r.client.Get(ctx, k)
	if pkgredis.IsMiss(err) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read availability: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode availability: %w", err)
	}
	return snap, true, nil
}

func (r *RedisStore) Set(ctx context.Context, scope string, key Key, snap Snapshot) error {
	k, err := r.key(ctx, scope, key)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, k, string(raw), 0); err != nil {
		return fmt.Errorf("write availability: %w", err)
	}
	return nil
}

func (r *RedisStore) Reset(ctx context.Context, scope string) error {
	if _, err := r.client.BumpGeneration(ctx, scope); err != nil {
		return fmt.Errorf("reset availability: %w", err)
	}
	return nil
}

func (r *RedisStore) key(ctx context.Context, scope string, key Key) (string, error) {
	gen, err := r.client.Generation(ctx, scope)
	if err != nil {
		return "", fmt.Errorf("read availability generation: %w", err)
	}
	return r.client.AvailabilityKey(scope, gen, key.SKU, key.gradeParam(), key.TeacherID), nil
}

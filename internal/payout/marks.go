package payout

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/agrilink-erp/agrilink/internal/upstream"
)

// MarkStore persists paid-mark keys independently of the office API, so a
// confirmed Pay survives an upstream that fails to echo the mark back.
// Marks are scoped per entity and mirrored into a per-type global set.
type MarkStore interface {
	Add(ctx context.Context, typ upstream.EntityType, entityID, key string) error
	Keys(ctx context.Context, typ upstream.EntityType, entityID string) (map[string]bool, error)
}

// RedisMarkStore keeps paid marks in Redis sets.
type RedisMarkStore struct {
	client *redis.Client
}

// NewRedisMarkStore constructs the store.
func NewRedisMarkStore(client *redis.Client) *RedisMarkStore {
	return &RedisMarkStore{client: client}
}

func markKey(typ upstream.EntityType, entityID string) string {
	if entityID == "" {
		return fmt.Sprintf("paidmarks:%s", typ)
	}
	return fmt.Sprintf("paidmarks:%s:%s", typ, entityID)
}

// Add records a paid key in the entity-scoped set and the global mirror.
func (s *RedisMarkStore) Add(ctx context.Context, typ upstream.EntityType, entityID, key string) error {
	if key == "" {
		return fmt.Errorf("payout: mark key required")
	}
	if err := s.client.SAdd(ctx, markKey(typ, ""), key).Err(); err != nil {
		return fmt.Errorf("payout: add mark: %w", err)
	}
	if entityID != "" {
		if err := s.client.SAdd(ctx, markKey(typ, entityID), key).Err(); err != nil {
			return fmt.Errorf("payout: add entity mark: %w", err)
		}
	}
	return nil
}

// Keys returns the union of the entity-scoped set and the global mirror.
func (s *RedisMarkStore) Keys(ctx context.Context, typ upstream.EntityType, entityID string) (map[string]bool, error) {
	out := make(map[string]bool)
	members, err := s.client.SMembers(ctx, markKey(typ, "")).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("payout: load marks: %w", err)
	}
	for _, m := range members {
		out[m] = true
	}
	if entityID != "" {
		members, err = s.client.SMembers(ctx, markKey(typ, entityID)).Result()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("payout: load entity marks: %w", err)
		}
		for _, m := range members {
			out[m] = true
		}
	}
	return out, nil
}

// MemoryMarkStore is the in-memory MarkStore used by tests and by
// deployments without Redis.
type MemoryMarkStore struct {
	mu   sync.RWMutex
	sets map[string]map[string]bool
}

// NewMemoryMarkStore constructs an empty in-memory store.
func NewMemoryMarkStore() *MemoryMarkStore {
	return &MemoryMarkStore{sets: make(map[string]map[string]bool)}
}

func (s *MemoryMarkStore) add(bucket, key string) {
	set, ok := s.sets[bucket]
	if !ok {
		set = make(map[string]bool)
		s.sets[bucket] = set
	}
	set[key] = true
}

// Add records a paid key.
func (s *MemoryMarkStore) Add(ctx context.Context, typ upstream.EntityType, entityID, key string) error {
	if key == "" {
		return fmt.Errorf("payout: mark key required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(markKey(typ, ""), key)
	if entityID != "" {
		s.add(markKey(typ, entityID), key)
	}
	return nil
}

// Keys returns the union of entity-scoped and global marks.
func (s *MemoryMarkStore) Keys(ctx context.Context, typ upstream.EntityType, entityID string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool)
	for k := range s.sets[markKey(typ, "")] {
		out[k] = true
	}
	if entityID != "" {
		for k := range s.sets[markKey(typ, entityID)] {
			out[k] = true
		}
	}
	return out, nil
}

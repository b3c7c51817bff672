package payout

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/agrilink-erp/agrilink/internal/upstream"
)

func markStores(t *testing.T) map[string]MarkStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return map[string]MarkStore{
		"redis":  NewRedisMarkStore(client),
		"memory": NewMemoryMarkStore(),
	}
}

func TestMarkStoreEntityAndGlobalScope(t *testing.T) {
	for name, store := range markStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Add(ctx, upstream.EntityDriver, "D1", "2024-04-01_D1"))

			// Entity-scoped lookup sees the mark.
			keys, err := store.Keys(ctx, upstream.EntityDriver, "D1")
			require.NoError(t, err)
			require.True(t, keys["2024-04-01_D1"])

			// Global mirror serves lookups without an entity filter.
			keys, err = store.Keys(ctx, upstream.EntityDriver, "")
			require.NoError(t, err)
			require.True(t, keys["2024-04-01_D1"])

			// Other entities see it through the global mirror as well;
			// the fallback is a lower bound, never a filter.
			keys, err = store.Keys(ctx, upstream.EntityDriver, "D2")
			require.NoError(t, err)
			require.True(t, keys["2024-04-01_D1"])

			// Other ledger types do not.
			keys, err = store.Keys(ctx, upstream.EntityLabour, "D1")
			require.NoError(t, err)
			require.False(t, keys["2024-04-01_D1"])
		})
	}
}

func TestMarkStoreRejectsEmptyKey(t *testing.T) {
	for name, store := range markStores(t) {
		t.Run(name, func(t *testing.T) {
			require.Error(t, store.Add(context.Background(), upstream.EntityDriver, "D1", ""))
		})
	}
}

func TestMarkStoreAddIsIdempotent(t *testing.T) {
	for name, store := range markStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Add(ctx, upstream.EntityLabour, "L1", "2024-04-01_L1"))
			require.NoError(t, store.Add(ctx, upstream.EntityLabour, "L1", "2024-04-01_L1"))
			keys, err := store.Keys(ctx, upstream.EntityLabour, "L1")
			require.NoError(t, err)
			require.Len(t, keys, 1)
		})
	}
}

package postgres

import (
	"context"
	"sync"
	"testing"

	"github.com/parishworks/ticketing/internal/domain"
	"github.com/parishworks/ticketing/internal/testutil"
)

func TestInventoryStore(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)
	store := NewInventoryStore(pool)

	t.Run("reserve decrements atomically", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertTier(t, ctx, pool, "gold", 10)

		res, err := store.Reserve(ctx, "gold", 4)
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}
		if !res.OK || res.Available != 6 {
			t.Fatalf("unexpected result: %+v", res)
		}

		res, err = store.Reserve(ctx, "gold", 7)
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}
		if res.OK {
			t.Fatalf("expected shortfall")
		}
		if res.Available != 6 {
			t.Fatalf("expected live count 6, got %d", res.Available)
		}
	})

	t.Run("tier ids case-normalized", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		if err := store.Initialize(ctx, "Gold", 5); err != nil {
			t.Fatalf("initialize: %v", err)
		}
		res, err := store.Reserve(ctx, "GOLD", 1)
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}
		if !res.OK || res.Available != 4 {
			t.Fatalf("unexpected result: %+v", res)
		}
	})

	t.Run("release round trip and zero no-op", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertTier(t, ctx, pool, "silver", 20)

		if _, err := store.Reserve(ctx, "silver", 8); err != nil {
			t.Fatalf("reserve: %v", err)
		}
		after, err := store.Release(ctx, "silver", 8)
		if err != nil {
			t.Fatalf("release: %v", err)
		}
		if after != 20 {
			t.Fatalf("expected 20 after round trip, got %d", after)
		}

		after, err = store.Release(ctx, "silver", 0)
		if err != nil {
			t.Fatalf("release zero: %v", err)
		}
		if after != 20 {
			t.Fatalf("expected no-op, got %d", after)
		}
	})

	t.Run("unknown tier errors", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		if _, err := store.Get(ctx, "missing"); err != domain.ErrTierNotFound {
			t.Fatalf("expected ErrTierNotFound, got %v", err)
		}
		if _, err := store.Release(ctx, "missing", 1); err != domain.ErrTierNotFound {
			t.Fatalf("expected ErrTierNotFound, got %v", err)
		}
	})

	t.Run("get all with and without filter", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertTier(t, ctx, pool, "gold", 5)
		testutil.InsertTier(t, ctx, pool, "silver", 10)

		all, err := store.GetAll(ctx, nil)
		if err != nil {
			t.Fatalf("get all: %v", err)
		}
		if len(all) != 2 || all["gold"] != 5 || all["silver"] != 10 {
			t.Fatalf("unexpected counts: %v", all)
		}

		one, err := store.GetAll(ctx, []string{"Gold"})
		if err != nil {
			t.Fatalf("get filtered: %v", err)
		}
		if len(one) != 1 || one["gold"] != 5 {
			t.Fatalf("unexpected counts: %v", one)
		}
	})

	t.Run("no oversell under concurrent reserves", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertTier(t, ctx, pool, "gold", 2)

		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := store.Reserve(ctx, "gold", 1)
				if err != nil {
					t.Errorf("reserve: %v", err)
					return
				}
				if res.OK {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if wins != 2 {
			t.Fatalf("expected exactly 2 winners, got %d", wins)
		}
		final, err := store.Get(ctx, "gold")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if final != 0 {
			t.Fatalf("expected 0 left, got %d", final)
		}
	})
}

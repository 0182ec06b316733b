package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("marks new command key as processed", func(t *testing.T) {
		key := "cmd:tenant-1:SAV-1001:transaction:dep-001"

		isNew, err := store.MarkProcessed(ctx, key, 1*time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew, "new key should return true")
	})

	t.Run("returns false for replayed command key", func(t *testing.T) {
		key := "cmd:tenant-1:SAV-1001:transaction:dep-002"

		isNew, err := store.MarkProcessed(ctx, key, 1*time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, key, 1*time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew, "replayed key should return false")
	})

	t.Run("allows reprocessing after expiration", func(t *testing.T) {
		key := "cmd:tenant-1:SAV-1001:interest-accrued:2026-08-31"
		ttl := 10 * time.Millisecond

		isNew, err := store.MarkProcessed(ctx, key, ttl)
		require.NoError(t, err)
		assert.True(t, isNew)

		time.Sleep(20 * time.Millisecond)

		isNew, err = store.MarkProcessed(ctx, key, ttl)
		require.NoError(t, err)
		assert.True(t, isNew, "expired key should be reprocessable")
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("returns false for unseen key", func(t *testing.T) {
		processed, err := store.IsProcessed(ctx, "cmd:tenant-1:SAV-9999:transaction:never-seen")
		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("returns true for processed key", func(t *testing.T) {
		key := "instance.opened:4f1c2a90"
		_, err := store.MarkProcessed(ctx, key, 1*time.Hour)
		require.NoError(t, err)

		processed, err := store.IsProcessed(ctx, key)
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("returns false once the key expires", func(t *testing.T) {
		key := "cmd:tenant-1:CD-2001:dividend-payout:dist-7"
		_, err := store.MarkProcessed(ctx, key, 10*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(20 * time.Millisecond)

		processed, err := store.IsProcessed(ctx, key)
		require.NoError(t, err)
		assert.False(t, processed, "expired key should read as unprocessed")
	})
}

func TestInMemoryIdempotencyStore_Size(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	assert.Equal(t, 0, store.Size(), "empty store should have size 0")

	store.MarkProcessed(ctx, "cmd:tenant-1:SAV-1001:transaction:a", 1*time.Hour)
	assert.Equal(t, 1, store.Size())

	store.MarkProcessed(ctx, "cmd:tenant-1:SAV-1002:transaction:b", 1*time.Hour)
	assert.Equal(t, 2, store.Size())

	// Replaying a key does not grow the store
	store.MarkProcessed(ctx, "cmd:tenant-1:SAV-1001:transaction:a", 1*time.Hour)
	assert.Equal(t, 2, store.Size())
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	store.MarkProcessed(ctx, "cmd:tenant-1:SAV-1001:transaction:old-1", 10*time.Millisecond)
	store.MarkProcessed(ctx, "cmd:tenant-1:SAV-1002:transaction:old-2", 10*time.Millisecond)
	store.MarkProcessed(ctx, "cmd:tenant-1:SAV-1003:transaction:fresh", 1*time.Hour)

	assert.Equal(t, 3, store.Size())

	time.Sleep(20 * time.Millisecond)

	store.cleanup()

	assert.Equal(t, 1, store.Size())

	processed, err := store.IsProcessed(ctx, "cmd:tenant-1:SAV-1003:transaction:fresh")
	require.NoError(t, err)
	assert.True(t, processed)

	processed, err = store.IsProcessed(ctx, "cmd:tenant-1:SAV-1001:transaction:old-1")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestInMemoryIdempotencyStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()
	const numGoroutines = 100
	const key = "cmd:tenant-1:SAV-1001:transaction:retry-storm"

	results := make(chan bool, numGoroutines)

	// A retried transaction command races against itself
	for i := 0; i < numGoroutines; i++ {
		go func() {
			isNew, err := store.MarkProcessed(ctx, key, 1*time.Hour)
			results <- err == nil && isNew
		}()
	}

	newCount := 0
	for i := 0; i < numGoroutines; i++ {
		if <-results {
			newCount++
		}
	}

	assert.Equal(t, 1, newCount, "exactly one attempt should win the key")
}

func TestInMemoryIdempotencyStore_DistinctAccountsDoNotCollide(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		key := fmt.Sprintf("cmd:tenant-1:SAV-100%d:transaction:dep-001", i)
		isNew, err := store.MarkProcessed(ctx, key, 1*time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew, "key for account %d should be new", i)
	}

	assert.Equal(t, 3, store.Size())
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	err := store.Close()
	assert.NoError(t, err)

	// Multiple closes should be safe
	err = store.Close()
	assert.NoError(t, err)
}

package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestCacheAndLookupToken(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	if err := store.CacheToken(ctx, "hash-1", "user-1"); err != nil {
		t.Fatalf("CacheToken failed: %v", err)
	}

	userID, err := store.LookupToken(ctx, "hash-1")
	if err != nil {
		t.Fatalf("LookupToken failed: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("expected user-1, got %q", userID)
	}
}

func TestLookupTokenMiss(t *testing.T) {
	store, _ := setupTestRedis(t)

	if _, err := store.LookupToken(context.Background(), "nope"); err == nil {
		t.Error("expected an error for an uncached token")
	}
}

func TestInvalidateToken(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	if err := store.CacheToken(ctx, "hash-1", "user-1"); err != nil {
		t.Fatalf("CacheToken failed: %v", err)
	}
	if err := store.InvalidateToken(ctx, "hash-1"); err != nil {
		t.Fatalf("InvalidateToken failed: %v", err)
	}
	if _, err := store.LookupToken(ctx, "hash-1"); err == nil {
		t.Error("expected a miss after invalidation")
	}
}

func TestInvalidateMissingTokenIsFine(t *testing.T) {
	store, _ := setupTestRedis(t)

	if err := store.InvalidateToken(context.Background(), "never-cached"); err != nil {
		t.Errorf("invalidating a missing token should not fail: %v", err)
	}
}

func TestCachedTokenExpires(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	if err := store.CacheToken(ctx, "hash-1", "user-1"); err != nil {
		t.Fatalf("CacheToken failed: %v", err)
	}

	mr.FastForward(16 * time.Minute)

	if _, err := store.LookupToken(ctx, "hash-1"); err == nil {
		t.Error("expected the cached token to expire")
	}
}

func TestTokensAreIsolatedByHash(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	if err := store.CacheToken(ctx, "hash-a", "user-a"); err != nil {
		t.Fatalf("CacheToken failed: %v", err)
	}
	if err := store.CacheToken(ctx, "hash-b", "user-b"); err != nil {
		t.Fatalf("CacheToken failed: %v", err)
	}
	if err := store.InvalidateToken(ctx, "hash-a"); err != nil {
		t.Fatalf("InvalidateToken failed: %v", err)
	}

	userID, err := store.LookupToken(ctx, "hash-b")
	if err != nil {
		t.Fatalf("LookupToken failed: %v", err)
	}
	if userID != "user-b" {
		t.Errorf("expected user-b, got %q", userID)
	}
}

func TestPing(t *testing.T) {
	store, mr := setupTestRedis(t)

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	mr.Close()
	if err := store.Ping(context.Background()); err == nil {
		t.Error("expected Ping to fail once Redis is down")
	}
}

//go:build integration

package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haircarepro/haircarepro/internal/model"
	"github.com/haircarepro/haircarepro/internal/testutil"
)

func newCacheTestEnv(t *testing.T) (context.Context, *Cache) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	c, err := New(ctx, redisURL)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := testutil.FlushRedis(ctx, c.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}

	return ctx, c
}

func TestIntegrationSession_Lifecycle(t *testing.T) {
	ctx, c := newCacheTestEnv(t)

	user := model.SessionUser{ID: "u1", Username: "alice", Email: "a@x.com"}
	created, err := c.CreateSession(ctx, "tok-1", user, time.Minute)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if created.ExpiresAt.Sub(created.CreatedAt) != time.Minute {
		t.Errorf("expiry window = %s, want 1m", created.ExpiresAt.Sub(created.CreatedAt))
	}

	ttl, err := c.Client().TTL(ctx, SessionKey("tok-1")).Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("redis TTL = %s, want (0, 1m]", ttl)
	}

	loaded, err := c.GetSession(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if loaded.User != user {
		t.Errorf("session user = %+v, want %+v", loaded.User, user)
	}
	if loaded.ID != "tok-1" {
		t.Errorf("session ID = %q, want tok-1", loaded.ID)
	}

	if err := c.DeleteSession(ctx, "tok-1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := c.GetSession(ctx, "tok-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}

	// Deleting twice is fine.
	if err := c.DeleteSession(ctx, "tok-1"); err != nil {
		t.Errorf("second DeleteSession failed: %v", err)
	}
}

func TestIntegrationSession_Corrupted(t *testing.T) {
	ctx, c := newCacheTestEnv(t)

	if err := c.Client().Set(ctx, SessionKey("bad"), "not-json", time.Minute).Err(); err != nil {
		t.Fatalf("seed corrupted session: %v", err)
	}

	if _, err := c.GetSession(ctx, "bad"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound for corrupted entry, got %v", err)
	}
}

func TestIntegrationLoginRateLimit_Concurrency(t *testing.T) {
	ctx, c := newCacheTestEnv(t)

	rps := 1
	burst := 5
	var allowed, rejected int64

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 3; j++ {
				result, err := c.CheckLoginRateLimit(ctx, "203.0.113.7", rps, burst)
				if err != nil {
					t.Errorf("CheckLoginRateLimit error: %v", err)
					return
				}
				if result.Allowed {
					atomic.AddInt64(&allowed, 1)
				} else {
					atomic.AddInt64(&rejected, 1)
				}
			}
		}()
	}
	wg.Wait()

	t.Logf("login limit: %d allowed, %d rejected", allowed, rejected)

	if allowed > int64(burst+2*rps) {
		t.Errorf("too many attempts allowed: %d", allowed)
	}
	if rejected == 0 {
		t.Error("expected some attempts to be rejected")
	}
}

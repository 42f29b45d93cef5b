package session

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, time.Hour), mr
}

func TestSessionStartsUnverified(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	state, err := store.Create(ctx, "sess-1", "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if state.Verified {
		t.Fatalf("new session must start unverified")
	}

	got, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Verified || got.UserID != "user-1" {
		t.Fatalf("unexpected state: %+v", got)
	}
}

func TestGenerationIncreasesPerSession(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, "sess-1", "user-1")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := store.Create(ctx, "sess-2", "user-2")
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.Generation <= first.Generation {
		t.Fatalf("expected generation to increase: %d then %d", first.Generation, second.Generation)
	}
}

func TestMarkVerifiedDoesNotSurviveDestroy(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, "sess-1", "user-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.MarkVerified(ctx, "sess-1"); err != nil {
		t.Fatalf("mark verified: %v", err)
	}

	state, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !state.Verified {
		t.Fatalf("expected verified session")
	}

	if err := store.Destroy(ctx, "sess-1"); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := store.Get(ctx, "sess-1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after destroy, got %v", err)
	}
}

func TestGraceMarkerExpires(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	if err := store.SetGraceMarker(ctx, "sess-1", 5*time.Second); err != nil {
		t.Fatalf("set grace: %v", err)
	}
	ok, err := store.HasGraceMarker(ctx, "sess-1")
	if err != nil || !ok {
		t.Fatalf("expected active grace marker, ok=%v err=%v", ok, err)
	}

	mr.FastForward(6 * time.Second)

	ok, err = store.HasGraceMarker(ctx, "sess-1")
	if err != nil {
		t.Fatalf("has grace: %v", err)
	}
	if ok {
		t.Fatalf("grace marker must self-expire")
	}
}

func TestRecordRedirectOncePerPathState(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	first, err := store.RecordRedirect(ctx, "sess-1", "/jobs", "needs_enrollment")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !first {
		t.Fatalf("first redirect for (path,state) must fire")
	}

	for i := 0; i < 4; i++ {
		again, err := store.RecordRedirect(ctx, "sess-1", "/jobs", "needs_enrollment")
		if err != nil {
			t.Fatalf("record repeat %d: %v", i, err)
		}
		if again {
			t.Fatalf("repeat %d must not fire a second redirect", i)
		}
	}

	// Path change resets the flag.
	moved, err := store.RecordRedirect(ctx, "sess-1", "/profile", "needs_enrollment")
	if err != nil {
		t.Fatalf("record after path change: %v", err)
	}
	if !moved {
		t.Fatalf("redirect flag must reset on path change")
	}
}

func TestMemoryStoreMatchesContract(t *testing.T) {
	now := time.Now()
	store := NewMemoryStoreWithClock(func() time.Time { return now })
	ctx := context.Background()

	if _, err := store.Create(ctx, "sess-1", "user-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.SetGraceMarker(ctx, "sess-1", 5*time.Second); err != nil {
		t.Fatalf("set grace: %v", err)
	}
	ok, _ := store.HasGraceMarker(ctx, "sess-1")
	if !ok {
		t.Fatalf("expected grace marker")
	}

	now = now.Add(6 * time.Second)
	ok, _ = store.HasGraceMarker(ctx, "sess-1")
	if ok {
		t.Fatalf("memory grace marker must expire")
	}
}

package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/fitlog/internal/model"
)

func TestMemorySessionStore_CreateFindDelete(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()
	session := &model.Session{ID: "tok", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}

	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := store.FindByID(ctx, "tok")
	if err != nil || got == nil {
		t.Fatalf("FindByID = %v, %v; want session", got, err)
	}
	if got.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", got.UserID, "user-1")
	}

	if err := store.DeleteByID(ctx, "tok"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := store.DeleteByID(ctx, "tok"); err != nil {
		t.Errorf("second delete returned error: %v", err)
	}

	got, _ = store.FindByID(ctx, "tok")
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestMemorySessionStore_ExpiredSessionIsAbsent(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemorySessionStore()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Create(ctx, &model.Session{ID: "old", UserID: "u", ExpiresAt: now.Add(-time.Minute)})

	got, err := store.FindByID(ctx, "old")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Error("expired session must not resolve")
	}
	if store.Len() != 0 {
		t.Errorf("expired session should be evicted on lookup, len = %d", store.Len())
	}
}

func TestMemorySessionStore_DeleteExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemorySessionStore()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Create(ctx, &model.Session{ID: "a", UserID: "u", ExpiresAt: now.Add(-time.Hour)})
	_ = store.Create(ctx, &model.Session{ID: "b", UserID: "u", ExpiresAt: now})
	_ = store.Create(ctx, &model.Session{ID: "c", UserID: "u", ExpiresAt: now.Add(time.Hour)})

	n, err := store.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
	if store.Len() != 1 {
		t.Errorf("remaining = %d, want 1", store.Len())
	}
}

func TestMemorySessionStore_ConcurrentAccess(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("tok-%d", i)
			_ = store.Create(ctx, &model.Session{ID: id, UserID: "u", ExpiresAt: time.Now().Add(time.Hour)})
			if s, _ := store.FindByID(ctx, id); s == nil {
				t.Errorf("session %s not found after create", id)
			}
			_ = store.DeleteByID(ctx, id)
		}(i)
	}
	wg.Wait()

	if store.Len() != 0 {
		t.Errorf("len = %d, want 0", store.Len())
	}
}

func TestRedisSessionKey_UsesPrefix(t *testing.T) {
	if got := redisSessionKey("abc"); got != "session:abc" {
		t.Errorf("redisSessionKey = %q, want %q", got, "session:abc")
	}
}

func TestRedisSessionStore_CreateRejectsExpiredSession(t *testing.T) {
	store := NewRedisSessionStore(nil)
	err := store.Create(context.Background(), &model.Session{ID: "x", ExpiresAt: time.Now().Add(-time.Second)})
	if err == nil {
		t.Error("expected error for already expired session")
	}
}

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
)

func TestMemoryLocker(t *testing.T) {
	locker := NewMemoryLocker(NewMemoryStore())
	ctx := context.Background()

	unlock, err := locker.TryLock(ctx, "recording:lock:a", time.Minute)
	if err != nil {
		t.Fatalf("first lock failed: %v", err)
	}
	if _, err := locker.TryLock(ctx, "recording:lock:a", time.Minute); !errors.Is(err, entities.ErrRecordingLocked) {
		t.Fatalf("expected ErrRecordingLocked, got %v", err)
	}
	if _, err := locker.TryLock(ctx, "recording:lock:b", time.Minute); err != nil {
		t.Fatalf("other keys must be independent: %v", err)
	}

	unlock()
	if _, err := locker.TryLock(ctx, "recording:lock:a", time.Minute); err != nil {
		t.Fatalf("lock should be free after unlock: %v", err)
	}
}

func TestMemoryLockerExpiry(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	locker := NewMemoryLocker(store)

	// a holder that died without releasing, so nothing renews its key
	if !store.SetNX("k", "crashed-worker", time.Millisecond) {
		t.Fatal("SetNX failed")
	}
	time.Sleep(5 * time.Millisecond)

	unlock, err := locker.TryLock(context.Background(), "k", time.Minute)
	if err != nil {
		t.Fatalf("expired lock should be acquirable: %v", err)
	}
	defer unlock()

	// the expired holder must not release the new holder's lock
	if store.DeleteIfValue("k", "crashed-worker") {
		t.Fatal("stale holder released the new holder's lock")
	}
	if _, ok := store.Get("k"); !ok {
		t.Fatal("new holder's lock is gone")
	}
}

func TestMemoryLockerRenewsWhileHeld(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	locker := NewMemoryLocker(store)
	ctx := context.Background()

	unlock, err := locker.TryLock(ctx, "k", 30*time.Millisecond)
	if err != nil {
		t.Fatalf("lock failed: %v", err)
	}

	// well past the ttl, the holder is still alive
	time.Sleep(150 * time.Millisecond)
	if _, err := locker.TryLock(ctx, "k", time.Minute); !errors.Is(err, entities.ErrRecordingLocked) {
		t.Fatalf("expected lock to be renewed, got %v", err)
	}

	unlock()
	unlock()
	next, err := locker.TryLock(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("lock should be free after unlock: %v", err)
	}
	next()
}

func TestMemoryStoreExtendIfValue(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	base := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	now := base
	store.now = func() time.Time { return now }

	store.SetNX("k", "a", time.Minute)
	if store.ExtendIfValue("k", "b", time.Hour) {
		t.Fatal("non-owner must not extend")
	}

	now = base.Add(50 * time.Second)
	if !store.ExtendIfValue("k", "a", time.Minute) {
		t.Fatal("owner should extend")
	}
	now = base.Add(90 * time.Second)
	if _, ok := store.Get("k"); !ok {
		t.Fatal("extended key expired early")
	}

	now = base.Add(5 * time.Minute)
	if store.ExtendIfValue("k", "a", time.Minute) {
		t.Fatal("an expired key cannot be extended")
	}
}

func TestMemoryStoreOwnership(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	if !store.SetNX("k", "a", time.Minute) {
		t.Fatal("SetNX on empty key should succeed")
	}
	if store.SetNX("k", "b", time.Minute) {
		t.Fatal("SetNX on held key should fail")
	}
	if store.DeleteIfValue("k", "b") {
		t.Fatal("non-owner must not delete")
	}
	if owner, ok := store.Get("k"); !ok || owner != "a" {
		t.Fatalf("expected owner a, got %q %v", owner, ok)
	}
	if !store.DeleteIfValue("k", "a") {
		t.Fatal("owner should delete")
	}
	if _, ok := store.Get("k"); ok {
		t.Fatal("key should be gone")
	}
	store.Close()
}

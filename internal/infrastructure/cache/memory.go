package cache

import (
	"sync"
	"time"
)

// MemoryStore is a process-local key/value store with per-key expiry.
// It backs MemoryLocker when redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type memoryEntry struct {
	owner     string
	expiresAt time.Time
}

func (e memoryEntry) live(now time.Time) bool {
	return now.Before(e.expiresAt)
}

// NewMemoryStore creates a store and starts its expiry sweep
func NewMemoryStore() *MemoryStore {
	store := &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go store.sweep(time.Minute)
	return store
}

// SetNX claims key for owner unless a live entry already holds it
func (ms *MemoryStore) SetNX(key, owner string, ttl time.Duration) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	if e, ok := ms.entries[key]; ok && e.live(now) {
		return false
	}
	ms.entries[key] = memoryEntry{owner: owner, expiresAt: now.Add(ttl)}
	return true
}

// Get returns the live owner of key
func (ms *MemoryStore) Get(key string) (string, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	e, ok := ms.entries[key]
	if !ok || !e.live(ms.now()) {
		return "", false
	}
	return e.owner, true
}

// ExtendIfValue moves the expiry of key to now+ttl while owner still holds it
func (ms *MemoryStore) ExtendIfValue(key, owner string, ttl time.Duration) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	e, ok := ms.entries[key]
	if !ok || e.owner != owner || !e.live(now) {
		return false
	}
	e.expiresAt = now.Add(ttl)
	ms.entries[key] = e
	return true
}

// DeleteIfValue releases key only while owner still holds it
func (ms *MemoryStore) DeleteIfValue(key, owner string) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	e, ok := ms.entries[key]
	if !ok || e.owner != owner {
		return false
	}
	delete(ms.entries, key)
	return true
}

// Close stops the expiry sweep
func (ms *MemoryStore) Close() {
	ms.once.Do(func() { close(ms.stop) })
}

func (ms *MemoryStore) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ms.stop:
			return
		case <-ticker.C:
			ms.mu.Lock()
			now := ms.now()
			for key, e := range ms.entries {
				if !e.live(now) {
					delete(ms.entries, key)
				}
			}
			ms.mu.Unlock()
		}
	}
}

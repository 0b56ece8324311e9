package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process Store for single instance deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// SetFlag stores value until it is popped or ttl elapses.
func (s *MemoryStore) SetFlag(_ context.Context, sessionID, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictExpired(now)
	s.entries[flagKey(sessionID, key)] = memoryEntry{value: value, expiresAt: now.Add(ttl)}
	return nil
}

// PopFlag returns and deletes the flag.
func (s *MemoryStore) PopFlag(_ context.Context, sessionID, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := flagKey(sessionID, key)
	entry, ok := s.entries[k]
	if !ok {
		return "", false, nil
	}
	delete(s.entries, k)

	if !s.now().Before(entry.expiresAt) {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryStore) evictExpired(now time.Time) {
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}

func flagKey(sessionID, key string) string {
	return "session:" + sessionID + ":" + key
}

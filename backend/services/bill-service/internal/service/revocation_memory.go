package service

import (
	"context"
	"sync"
	"time"
)

// MemoryRevocationList is the in-process revocation list used when Redis is not configured.
// Entries disappear once the token they revoke would have expired anyway.
type MemoryRevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationList returns an empty list.
func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{entries: make(map[string]time.Time), now: time.Now}
}

// Revoke marks jti as revoked for ttl.
func (l *MemoryRevocationList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, until := range l.entries {
		if !now.Before(until) {
			delete(l.entries, id)
		}
	}
	l.entries[jti] = now.Add(ttl)
	return nil
}

// IsRevoked reports whether jti is currently revoked.
func (l *MemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	until, ok := l.entries[jti]
	if !ok {
		return false, nil
	}
	if !l.now().Before(until) {
		delete(l.entries, jti)
		return false, nil
	}
	return true, nil
}

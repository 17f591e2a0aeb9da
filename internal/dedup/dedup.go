// Package dedup remembers callback delivery IDs so redelivered robot messages
// and mini-app events are dispatched once.
package dedup

import (
	"context"
	"sync"
	"time"
)

// Store records delivery IDs.
type Store interface {
	// Seen marks id as delivered and reports whether it had already been
	// marked within the store's TTL. Empty ids are never considered seen.
	Seen(ctx context.Context, id string) (bool, error)
	// Forget removes id so its next delivery is treated as new.
	Forget(ctx context.Context, id string) error
	Close() error
}

// Off never reports a duplicate.
type Off struct{}

func (Off) Seen(context.Context, string) (bool, error) { return false, nil }
func (Off) Forget(context.Context, string) error       { return nil }
func (Off) Close() error                               { return nil }

// Memory is an in-process Store with per-entry expiry.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]time.Time
	now     func() time.Time
	lastGC  time.Time
}

// NewMemory returns a Memory store remembering ids for ttl (default 10m).
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Memory{ttl: ttl, entries: make(map[string]time.Time), now: time.Now}
}

func (m *Memory) Seen(_ context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if now.Sub(m.lastGC) > m.ttl {
		for k, exp := range m.entries {
			if now.After(exp) {
				delete(m.entries, k)
			}
		}
		m.lastGC = now
	}
	if exp, ok := m.entries[id]; ok && !now.After(exp) {
		return true, nil
	}
	m.entries[id] = now.Add(m.ttl)
	return false, nil
}

func (m *Memory) Forget(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

// Len returns the number of remembered ids, expired ones included until
// the next sweep.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) Close() error { return nil }

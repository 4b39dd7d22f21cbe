package notify

import (
	"context"
	"sync"
	"time"
)

// DedupeStore guards confirmation emails against duplicate sends. MarkIfFirst
// records the key and reports whether it was the first unexpired occurrence;
// the record-then-send order closes the race between two near-simultaneous
// callbacks for the same order.
type DedupeStore interface {
	MarkIfFirst(ctx context.Context, key string) (bool, error)
}

// MemoryDedupe is a mutex-guarded in-process DedupeStore. Entries older than
// the retention window are swept on every access. The guarantee does not
// survive a process restart and does not span instances; multi-instance
// deployments should use RedisDedupe.
type MemoryDedupe struct {
	TTL time.Duration
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryDedupe constructs a store with the given retention window.
func NewMemoryDedupe(ttl time.Duration) *MemoryDedupe {
	return &MemoryDedupe{TTL: ttl, entries: map[string]time.Time{}}
}

// MarkIfFirst implements DedupeStore.
func (m *MemoryDedupe) MarkIfFirst(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string]time.Time{}
	}
	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}
	cutoff := now.Add(-m.ttl())
	for k, at := range m.entries {
		if at.Before(cutoff) {
			delete(m.entries, k)
		}
	}
	if _, exists := m.entries[key]; exists {
		return false, nil
	}
	m.entries[key] = now
	return true, nil
}

func (m *MemoryDedupe) ttl() time.Duration {
	if m.TTL <= 0 {
		return time.Hour
	}
	return m.TTL
}

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/andresuchdata/stockrecon/internal/domain"
)

// memorySnapshotCache is a process-local SnapshotCache. Entries expire after
// ttl measured against now.
type memorySnapshotCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	snapshot  *domain.RemainsSnapshot
	expiresAt time.Time
}

// NewMemorySnapshotCache creates an in-process cache. A nil now uses
// time.Now.
func NewMemorySnapshotCache(ttl time.Duration, now func() time.Time) SnapshotCache {
	if now == nil {
		now = time.Now
	}
	return &memorySnapshotCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     now,
	}
}

func (c *memorySnapshotCache) Get(ctx context.Context, tenant string) (*domain.RemainsSnapshot, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[buildSnapshotKey(tenant)]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.ttl > 0 && !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, buildSnapshotKey(tenant))
		c.mu.Unlock()
		return nil, false, nil
	}
	return copySnapshot(e.snapshot), true, nil
}

func (c *memorySnapshotCache) Put(ctx context.Context, tenant string, snapshot *domain.RemainsSnapshot) error {
	if snapshot == nil {
		return nil
	}
	c.mu.Lock()
	c.entries[buildSnapshotKey(tenant)] = memoryEntry{
		snapshot:  copySnapshot(snapshot),
		expiresAt: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
	return nil
}

func (c *memorySnapshotCache) Invalidate(ctx context.Context, tenant string) error {
	c.mu.Lock()
	delete(c.entries, buildSnapshotKey(tenant))
	c.mu.Unlock()
	return nil
}

func (c *memorySnapshotCache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

func copySnapshot(s *domain.RemainsSnapshot) *domain.RemainsSnapshot {
	records := make([]domain.RemainsRecord, len(s.Records))
	copy(records, s.Records)
	return &domain.RemainsSnapshot{Records: records, FetchedAt: s.FetchedAt}
}

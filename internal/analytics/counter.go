package analytics

import (
	"context"
	"sync"
)

// DailyCounter is the shared per-UTC-day query counter. The Redis client
// is the production implementation; MemoryCounter covers deployments
// without Redis and tests.
type DailyCounter interface {
	IncrementDaily(ctx context.Context, day string) error
	GetDaily(ctx context.Context, day string) (int64, error)
}

// MemoryCounter is a process-local fallback. Safe for concurrent use; old
// days are never pruned, which is fine for its short-lived use cases.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]int64)}
}

func (c *MemoryCounter) IncrementDaily(_ context.Context, day string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[day]++
	return nil
}

func (c *MemoryCounter) GetDaily(_ context.Context, day string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[day], nil
}

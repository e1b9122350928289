package cache

import (
	"context"
	"sync"
	"time"

	"watchlist-scanner/internal/types"
)

// memoryStore keeps bar series per key with thread-safe access
type memoryStore struct {
	buffers map[string]*barBuffer
	maxSize int
	now     func() time.Time
	mu      sync.RWMutex
}

// barBuffer stores the most recent bars of one series
type barBuffer struct {
	bars    []types.PriceBar
	expires time.Time
}

// NewMemoryStore creates an in-process store keeping at most maxSize bars per
// key. maxSize <= 0 keeps every bar.
func NewMemoryStore(maxSize int) Store {
	return &memoryStore{
		buffers: make(map[string]*barBuffer),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get returns a copy of the bars stored under key
func (ms *memoryStore) Get(ctx context.Context, key string) ([]types.PriceBar, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	buffer, exists := ms.buffers[key]
	if !exists || (!buffer.expires.IsZero() && ms.now().After(buffer.expires)) {
		return nil, false, nil
	}
	return append([]types.PriceBar(nil), buffer.bars...), true, nil
}

// Set stores bars under key, trimming to the newest maxSize bars
func (ms *memoryStore) Set(ctx context.Context, key string, bars []types.PriceBar, ttl time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.maxSize > 0 && len(bars) > ms.maxSize {
		bars = bars[len(bars)-ms.maxSize:]
	}
	buffer := &barBuffer{bars: append([]types.PriceBar(nil), bars...)}
	if ttl > 0 {
		buffer.expires = ms.now().Add(ttl)
	}
	ms.buffers[key] = buffer
	return nil
}

// Close removes all buffers
func (ms *memoryStore) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.buffers = make(map[string]*barBuffer)
	return nil
}

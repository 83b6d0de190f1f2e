package token

import (
	"context"
	"sync"
	"time"

	"github.com/0ashutosh1/Project/internal/logger"
)

// Revocations tracks invalidated access tokens until their natural
// expiry. IsRevoked sits on every authenticated request and must stay
// cheap.
type Revocations interface {
	Add(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevocations is the single-process registry. Expired entries are
// purged by a periodic sweep, not by lookups, trading bounded extra
// memory for predictable per-request latency.
type MemoryRevocations struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *MemoryRevocations) Add(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	m.entries[tokenID] = m.now().Add(ttl)
	m.mu.Unlock()
	return nil
}

// IsRevoked is a single read-locked lookup. An entry past its expiry is
// inert even before the sweep removes it.
func (m *MemoryRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	m.mu.RLock()
	expiresAt, ok := m.entries[tokenID]
	m.mu.RUnlock()
	return ok && m.now().Before(expiresAt), nil
}

// Size returns the number of tracked entries, expired or not.
func (m *MemoryRevocations) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// sweep removes entries past their expiry.
func (m *MemoryRevocations) sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, expiresAt := range m.entries {
		if !now.Before(expiresAt) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// StartSweep runs the periodic purge until ctx is cancelled. It runs on
// its own goroutine and never blocks request-serving paths.
func (m *MemoryRevocations) StartSweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := m.sweep(); removed > 0 {
					logger.Info("revocation sweep", map[string]any{
						"removed":   removed,
						"remaining": m.Size(),
					})
				}
			}
		}
	}()
}

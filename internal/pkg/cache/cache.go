package cache

import (
	"context"
	"strings"
	"sync"
)

// Invalidator drops derived read-cache entries after the underlying data
// changed. The engine only ever asks for tenant-scoped prefix invalidation;
// whether the backend can delete by pattern is an optimization detail.
type Invalidator interface {
	InvalidatePrefixes(ctx context.Context, tenantID string, prefixes ...string) error
}

// Key builds the canonical tenant-scoped cache key.
func Key(tenantID string, parts ...string) string {
	return tenantID + ":" + strings.Join(parts, ":")
}

// Memory is an in-process cache with prefix invalidation. It stands in for
// the external cache collaborator in tests and single-process deployments.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]any

	// patternSupport mirrors backends that cannot scan keys: when false,
	// invalidation falls back to the enumerated suffixes registered for
	// each prefix.
	patternSupport bool
	knownSuffixes  map[string][]string
}

func NewMemory() *Memory {
	return &Memory{
		entries:        make(map[string]any),
		patternSupport: true,
		knownSuffixes:  make(map[string][]string),
	}
}

// NewMemoryEnumerated builds a Memory without pattern support. Callers must
// register the key suffixes that exist under each prefix.
func NewMemoryEnumerated(knownSuffixes map[string][]string) *Memory {
	return &Memory{
		entries:        make(map[string]any),
		patternSupport: false,
		knownSuffixes:  knownSuffixes,
	}
}

func (m *Memory) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
}

func (m *Memory) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// InvalidatePrefixes implements Invalidator.
func (m *Memory) InvalidatePrefixes(_ context.Context, tenantID string, prefixes ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, prefix := range prefixes {
		full := Key(tenantID, prefix)
		if m.patternSupport {
			for key := range m.entries {
				if strings.HasPrefix(key, full) {
					delete(m.entries, key)
				}
			}
			continue
		}
		// Enumerated fallback: delete the exact keys known to live under
		// this prefix. Equally correct for every key the engine writes,
		// just blind to key shapes registered nowhere.
		delete(m.entries, full)
		for _, suffix := range m.knownSuffixes[prefix] {
			delete(m.entries, full+":"+suffix)
		}
	}
	return nil
}

// Nop discards all invalidations. Used when no cache collaborator is wired.
type Nop struct{}

func (Nop) InvalidatePrefixes(context.Context, string, ...string) error { return nil }

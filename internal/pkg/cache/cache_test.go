package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidatePrefixesPattern(t *testing.T) {
	m := NewMemory()
	m.Set(Key("t1", "dashboard", "2025", "6"), "a")
	m.Set(Key("t1", "dashboard", "2025", "7"), "b")
	m.Set(Key("t1", "attendance", "2025", "6"), "c")
	m.Set(Key("t2", "dashboard", "2025", "6"), "d")

	require.NoError(t, m.InvalidatePrefixes(context.Background(), "t1", "dashboard"))

	_, ok := m.Get(Key("t1", "dashboard", "2025", "6"))
	assert.False(t, ok)
	_, ok = m.Get(Key("t1", "dashboard", "2025", "7"))
	assert.False(t, ok)

	// Other prefixes and other tenants survive.
	_, ok = m.Get(Key("t1", "attendance", "2025", "6"))
	assert.True(t, ok)
	_, ok = m.Get(Key("t2", "dashboard", "2025", "6"))
	assert.True(t, ok)
}

func TestInvalidatePrefixesEnumeratedFallback(t *testing.T) {
	m := NewMemoryEnumerated(map[string][]string{
		"dashboard": {"2025:6", "2025:7"},
	})
	m.Set(Key("t1", "dashboard", "2025", "6"), "a")
	m.Set(Key("t1", "dashboard", "2025", "7"), "b")
	m.Set(Key("t1", "attendance", "2025", "6"), "c")

	require.NoError(t, m.InvalidatePrefixes(context.Background(), "t1", "dashboard"))

	// The fallback must drop the same keys the pattern path would.
	_, ok := m.Get(Key("t1", "dashboard", "2025", "6"))
	assert.False(t, ok)
	_, ok = m.Get(Key("t1", "dashboard", "2025", "7"))
	assert.False(t, ok)
	_, ok = m.Get(Key("t1", "attendance", "2025", "6"))
	assert.True(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "t1:dashboard:2025:6", Key("t1", "dashboard", "2025", "6"))
}

package storage

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vjranagit/drought/internal/testutil"
	"github.com/vjranagit/drought/pkg/table"
)

// memStore is an in-memory Store that counts loads
type memStore struct {
	mu     sync.Mutex
	tables map[string]*table.Table
	loads  int
}

func (m *memStore) Save(_ context.Context, key string, t *table.Table) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[key] = t
	return nil
}

func (m *memStore) Load(_ context.Context, key string) (*table.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	t, ok := m.tables[key]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

func (m *memStore) Keys(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.tables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, key)
	return nil
}

func (m *memStore) Close() error { return nil }

func TestTableCacheLRU(t *testing.T) {
	c := NewTableCache(2, time.Minute)
	a, b, d := sampleTable(t, 1), sampleTable(t, 2), sampleTable(t, 3)

	c.Put("a", a)
	c.Put("b", b)
	_, ok := c.Get("a")
	require.True(t, ok)

	// b is least recently used
	c.Put("d", d)
	assert.Equal(t, 2, c.Size())
	_, ok = c.Get("b")
	assert.False(t, ok)
	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Same(t, a, got)
}

func TestTableCacheTTL(t *testing.T) {
	c := NewTableCache(10, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put("a", sampleTable(t, 1))
	now = now.Add(30 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestCachedStoreReadThrough(t *testing.T) {
	ctx := context.Background()
	mem := &memStore{tables: map[string]*table.Table{}}
	log, _ := testutil.NewLogger()
	cs := NewCachedStore(mem, 4, time.Minute, log)

	require.NoError(t, mem.Save(ctx, "shots", sampleTable(t, 1)))

	for i := 0; i < 3; i++ {
		_, err := cs.Load(ctx, "shots")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, mem.loads)
	assert.InDelta(t, 66.67, cs.HitRate(), 0.01)

	require.NoError(t, cs.Delete(ctx, "shots"))
	_, err := cs.Load(ctx, "shots")
	assert.ErrorIs(t, err, ErrNotFound)
}

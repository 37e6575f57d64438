package fingerprint

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(v any, calls *atomic.Int64) func(context.Context) (any, error) {
	return func(context.Context) (any, error) {
		calls.Add(1)
		return v, nil
	}
}

func TestCache_Do(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	c := NewCache(4)
	var calls atomic.Int64
	ctx := context.Background()

	// --- Act ---
	first, hit1, err1 := c.Do(ctx, 1, constant("a", &calls))
	second, hit2, err2 := c.Do(ctx, 1, constant("b", &calls))

	// --- Assert ---
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, "a", first)
	assert.Equal(t, "a", second)
	assert.False(t, hit1)
	assert.True(t, hit2)
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, Stats{Hits: 1, Misses: 1, Entries: 1}, c.Stats())
}

func TestCache_FailuresAreNotStored(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	c := NewCache(4)
	boom := errors.New("boom")
	ctx := context.Background()

	// --- Act ---
	_, hit, err := c.Do(ctx, 9, func(context.Context) (any, error) { return nil, boom })

	// --- Assert ---
	require.ErrorIs(t, err, boom)
	assert.False(t, hit)
	assert.Zero(t, c.Len())

	v, hit, err := c.Do(ctx, 9, func(context.Context) (any, error) { return "ok", nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "ok", v)
}

func TestCache_ConcurrentFillsRunOnce(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	c := NewCache(4)
	var calls atomic.Int64
	release := make(chan struct{})
	fill := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	// --- Act ---
	var wg sync.WaitGroup
	results := make([]any, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := c.Do(context.Background(), 42, fill)
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	// --- Assert ---
	assert.Equal(t, int64(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	c := NewCache(2)
	var calls atomic.Int64
	ctx := context.Background()
	_, _, _ = c.Do(ctx, 1, constant("one", &calls))
	_, _, _ = c.Do(ctx, 2, constant("two", &calls))
	_, ok := c.Get(1)
	require.True(t, ok)

	// --- Act ---
	_, _, _ = c.Do(ctx, 3, constant("three", &calls))

	// --- Assert ---
	_, ok = c.Get(2)
	assert.False(t, ok, "2 was least recently used")
	_, ok = c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions)
	assert.Equal(t, 2, c.Len())
}

func TestCache_Reset(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	c := NewCache(0)
	var calls atomic.Int64
	_, _, _ = c.Do(context.Background(), 1, constant("one", &calls))

	// --- Act ---
	c.Reset()

	// --- Assert ---
	assert.Zero(t, c.Len())
	_, ok := c.Get(1)
	assert.False(t, ok)
}

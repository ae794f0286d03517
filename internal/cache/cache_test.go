package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, budget, maxEntry int64) *Cache[string] {
	t.Helper()
	c, err := New[string](budget, maxEntry, nil)
	require.NoError(t, err)
	return c
}

func constBuild(value string, size int64) BuildFunc[string] {
	return func(ctx context.Context) (string, int64, error) {
		return value, size, nil
	}
}

func TestGetOrBuildCachesByVersion(t *testing.T) {
	c := newTestCache(t, 1024, 0)
	ctx := context.Background()

	builds := 0
	build := func(ctx context.Context) (string, int64, error) {
		builds++
		return "artifact", 10, nil
	}

	v, err := c.GetOrBuild(ctx, "p1", "v1", build)
	require.NoError(t, err)
	assert.Equal(t, "artifact", v)
	assert.Equal(t, 1, builds)

	// Same version hits the cache.
	_, err = c.GetOrBuild(ctx, "p1", "v1", build)
	require.NoError(t, err)
	assert.Equal(t, 1, builds)

	// A bumped version makes the stored entry a miss.
	_, err = c.GetOrBuild(ctx, "p1", "v2", build)
	require.NoError(t, err)
	assert.Equal(t, 2, builds)
	assert.Equal(t, 1, c.Len())
}

func TestGetOrBuildSingleFlight(t *testing.T) {
	c := newTestCache(t, 1024, 0)
	ctx := context.Background()

	var builds atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	build := func(ctx context.Context) (string, int64, error) {
		builds.Add(1)
		close(started)
		<-release
		return "shared", 10, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrBuild(ctx, "p1", "v1", build)
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	<-started
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	for _, v := range results {
		assert.Equal(t, "shared", v)
	}
}

func TestAdmissionEvictsLRUWithoutEvictingSelf(t *testing.T) {
	c := newTestCache(t, 100, 0)
	ctx := context.Background()

	_, err := c.GetOrBuild(ctx, "a", "v1", constBuild("A", 60))
	require.NoError(t, err)
	require.Equal(t, int64(60), c.TotalSize())

	// B needs 60 of the 100-byte budget: A must go, B must stay.
	_, err = c.GetOrBuild(ctx, "b", "v1", constBuild("B", 60))
	require.NoError(t, err)

	_, ok := c.Get("a", "v1")
	assert.False(t, ok)
	v, ok := c.Get("b", "v1")
	require.True(t, ok)
	assert.Equal(t, "B", v)
	assert.Equal(t, int64(60), c.TotalSize())
}

func TestOversizedArtifactReturnedUncached(t *testing.T) {
	c := newTestCache(t, 100, 0)
	ctx := context.Background()

	_, err := c.GetOrBuild(ctx, "small", "v1", constBuild("S", 40))
	require.NoError(t, err)

	v, err := c.GetOrBuild(ctx, "huge", "v1", constBuild("H", 500))
	require.NoError(t, err)
	assert.Equal(t, "H", v)

	// The oversized artifact is neither cached nor allowed to evict others.
	_, ok := c.Get("huge", "v1")
	assert.False(t, ok)
	_, ok = c.Get("small", "v1")
	assert.True(t, ok)
	assert.Equal(t, int64(40), c.TotalSize())
}

func TestBuildErrorNotCached(t *testing.T) {
	c := newTestCache(t, 1024, 0)
	ctx := context.Background()

	boom := errors.New("parse failed")
	calls := 0
	_, err := c.GetOrBuild(ctx, "p1", "v1", func(ctx context.Context) (string, int64, error) {
		calls++
		return "", 0, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len())

	// The failed build is retried, not served from cache.
	_, err = c.GetOrBuild(ctx, "p1", "v1", func(ctx context.Context) (string, int64, error) {
		calls++
		return "ok", 5, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestInvalidatePrefix(t *testing.T) {
	c := newTestCache(t, 1024, 0)
	ctx := context.Background()

	for _, key := range []string{"comp/p1", "comp/p2", "model/p1/a.go"} {
		_, err := c.GetOrBuild(ctx, key, "v1", constBuild(key, 10))
		require.NoError(t, err)
	}

	c.InvalidatePrefix("comp/")
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("model/p1/a.go", "v1")
	assert.True(t, ok)
	assert.Equal(t, int64(10), c.TotalSize())
}

func TestResetClearsEverything(t *testing.T) {
	c := newTestCache(t, 1024, 0)
	ctx := context.Background()
	_, err := c.GetOrBuild(ctx, "p1", "v1", constBuild("A", 10))
	require.NoError(t, err)

	c.Reset()
	assert.Zero(t, c.Len())
	assert.Zero(t, c.TotalSize())
}

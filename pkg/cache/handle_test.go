package cache

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

type fakeClient struct {
	id     int32
	closed atomic.Bool
}

func (f *fakeClient) Close() error {
	f.closed.Store(true)
	return nil
}

func TestHandleCacheSingleFlight(t *testing.T) {
	var builds atomic.Int32
	c := NewHandleCache[*fakeClient]()

	release := make(chan struct{})
	build := func(ctx context.Context) (*fakeClient, error) {
		n := builds.Add(1)
		<-release
		return &fakeClient{id: n}, nil
	}

	const n = 20
	var wg sync.WaitGroup
	results := make([]*fakeClient, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := c.GetOrCreate(context.Background(), "https://rpc.example.org|1", build)
			assert.NoError(t, err)
			results[i] = h
		}(i)
	}

	// 等所有调用都进入构造等待
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	for _, h := range results {
		assert.Same(t, results[0], h)
	}
}

func TestHandleCacheTTL(t *testing.T) {
	var builds atomic.Int32
	c := NewHandleCache[*fakeClient](WithTTL(40 * time.Millisecond))
	build := func(ctx context.Context) (*fakeClient, error) {
		return &fakeClient{id: builds.Add(1)}, nil
	}

	first, err := c.GetOrCreate(context.Background(), "k", build)
	require.NoError(t, err)
	again, err := c.GetOrCreate(context.Background(), "k", build)
	require.NoError(t, err)
	assert.Same(t, first, again)

	time.Sleep(80 * time.Millisecond)

	second, err := c.GetOrCreate(context.Background(), "k", build)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), builds.Load())
	assert.True(t, first.closed.Load())
}

func TestHandleCacheEvictsOnKeySwitch(t *testing.T) {
	c := NewHandleCache[*fakeClient]()
	build := func(ctx context.Context) (*fakeClient, error) {
		return &fakeClient{}, nil
	}

	a, err := c.GetOrCreate(context.Background(), "a", build)
	require.NoError(t, err)
	b, err := c.GetOrCreate(context.Background(), "b", build)
	require.NoError(t, err)

	assert.True(t, a.closed.Load())
	assert.False(t, b.closed.Load())
	assert.Equal(t, 1, c.Len())
}

func TestHandleCacheMaxEntries(t *testing.T) {
	c := NewHandleCache[*fakeClient](WithMaxEntries(2))
	build := func(ctx context.Context) (*fakeClient, error) {
		return &fakeClient{}, nil
	}

	a, _ := c.GetOrCreate(context.Background(), "a", build)
	time.Sleep(time.Millisecond)
	b, _ := c.GetOrCreate(context.Background(), "b", build)
	time.Sleep(time.Millisecond)
	_, _ = c.GetOrCreate(context.Background(), "c", build)

	assert.True(t, a.closed.Load())
	assert.False(t, b.closed.Load())
	assert.Equal(t, 2, c.Len())
}

func TestHandleCacheErrorNotCached(t *testing.T) {
	var builds atomic.Int32
	var hooks atomic.Int32
	c := NewHandleCache[*fakeClient](WithBuildHook(func(string) { hooks.Add(1) }))

	_, err := c.GetOrCreate(context.Background(), "k", func(ctx context.Context) (*fakeClient, error) {
		builds.Add(1)
		return nil, errors.New("dial failed")
	})
	require.Error(t, err)

	h, err := c.GetOrCreate(context.Background(), "k", func(ctx context.Context) (*fakeClient, error) {
		builds.Add(1)
		return &fakeClient{}, nil
	})
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Equal(t, int32(2), builds.Load())
	assert.Equal(t, int32(2), hooks.Load())
}

func TestHandleCachePurgeClosesHandles(t *testing.T) {
	c := NewHandleCache[*fakeClient]()
	h, _ := c.GetOrCreate(context.Background(), "k", func(ctx context.Context) (*fakeClient, error) {
		return &fakeClient{}, nil
	})
	c.Purge()
	assert.True(t, h.closed.Load())
	assert.Equal(t, 0, c.Len())
}

func TestHandleCacheDefersCloseWhileAcquired(t *testing.T) {
	c := NewHandleCache[*fakeClient]()
	build := func(ctx context.Context) (*fakeClient, error) {
		return &fakeClient{}, nil
	}

	a, release, err := c.Acquire(context.Background(), "a", build)
	require.NoError(t, err)

	// 切换 key 淘汰 a，但 a 仍在使用中
	b, err := c.GetOrCreate(context.Background(), "b", build)
	require.NoError(t, err)
	assert.False(t, a.closed.Load())
	assert.Equal(t, 1, c.Len())

	release()
	assert.True(t, a.closed.Load())
	release()
	assert.False(t, b.closed.Load())
}

func TestHandleCacheAcquireSharesHandle(t *testing.T) {
	var builds atomic.Int32
	c := NewHandleCache[*fakeClient]()
	build := func(ctx context.Context) (*fakeClient, error) {
		return &fakeClient{id: builds.Add(1)}, nil
	}

	first, release1, err := c.Acquire(context.Background(), "k", build)
	require.NoError(t, err)
	second, release2, err := c.Acquire(context.Background(), "k", build)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), builds.Load())

	c.Purge()
	release1()
	assert.False(t, first.closed.Load())
	release2()
	assert.True(t, first.closed.Load())

	// 淘汰后重新构造
	third, release3, err := c.Acquire(context.Background(), "k", build)
	require.NoError(t, err)
	defer release3()
	assert.NotSame(t, first, third)
}

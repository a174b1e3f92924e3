package cache

import (
	"context"
	"io"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultHandleTTL        = 3 * time.Minute
	DefaultHandleMaxEntries = 1
)

// HandleCache 缓存构造代价较高的客户端句柄 (RPC 客户端、浏览器 API 客户端等)。
//
//   - 同一个 key 同时只存在一个存活句柄，构造期间的并发调用共享同一次构造
//   - 句柄自创建起 TTL 后过期，过期在访问时惰性判断，没有后台清理协程
//   - 超过 MaxEntries 时淘汰最早创建的句柄，实现了 io.Closer 的句柄会被关闭
//   - 通过 Acquire 借出的句柄被淘汰时，关闭推迟到最后一次 release 之后
//   - 构造失败不缓存，下次调用重新构造
type HandleCache[H any] struct {
	ttl        time.Duration
	maxEntries int
	items      *gocache.Cache
	group      singleflight.Group
	mu         sync.Mutex
	onBuild    func(key string)
}

type HandleOption func(*handleOptions)

type handleOptions struct {
	ttl        time.Duration
	maxEntries int
	onBuild    func(key string)
}

func WithTTL(ttl time.Duration) HandleOption {
	return func(o *handleOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

func WithMaxEntries(n int) HandleOption {
	return func(o *handleOptions) {
		if n > 0 {
			o.maxEntries = n
		}
	}
}

// WithBuildHook 每次真正执行构造时回调，用于统计
func WithBuildHook(fn func(key string)) HandleOption {
	return func(o *handleOptions) {
		o.onBuild = fn
	}
}

func NewHandleCache[H any](opts ...HandleOption) *HandleCache[H] {
	o := handleOptions{ttl: DefaultHandleTTL, maxEntries: DefaultHandleMaxEntries}
	for _, opt := range opts {
		opt(&o)
	}

	// cleanupInterval = 0: 不启动 janitor
	items := gocache.New(o.ttl, 0)
	items.OnEvicted(func(_ string, v interface{}) {
		if e, ok := v.(*handleEntry); ok {
			e.evict()
		}
	})

	return &HandleCache[H]{
		ttl:        o.ttl,
		maxEntries: o.maxEntries,
		items:      items,
		onBuild:    o.onBuild,
	}
}

// GetOrCreate 返回 key 对应的句柄，不存在或已过期时调用 build 构造。
// 返回的句柄不持有租约，淘汰时可能被立即关闭。
func (c *HandleCache[H]) GetOrCreate(ctx context.Context, key string, build func(ctx context.Context) (H, error)) (H, error) {
	e, err := c.entry(ctx, key, build)
	if err != nil {
		var zero H
		return zero, err
	}
	h, _ := e.handle.(H)
	return h, nil
}

// Acquire 与 GetOrCreate 相同，但同时借出句柄，release 之前句柄不会被关闭。
// release 可重复调用。
func (c *HandleCache[H]) Acquire(ctx context.Context, key string, build func(ctx context.Context) (H, error)) (H, func(), error) {
	for {
		e, err := c.entry(ctx, key, build)
		if err != nil {
			var zero H
			return zero, nil, err
		}
		// 已关闭的句柄重新构造
		if e.acquire() {
			h, _ := e.handle.(H)
			return h, sync.OnceFunc(e.release), nil
		}
		if err := ctx.Err(); err != nil {
			var zero H
			return zero, nil, err
		}
	}
}

func (c *HandleCache[H]) entry(ctx context.Context, key string, build func(ctx context.Context) (H, error)) (*handleEntry, error) {
	if e, ok := c.lookup(key); ok {
		return e, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// 等待期间可能已被其它调用构造完成
		if e, ok := c.lookup(key); ok {
			return e, nil
		}
		if c.onBuild != nil {
			c.onBuild(key)
		}
		h, err := build(ctx)
		if err != nil {
			return nil, err
		}
		e := &handleEntry{handle: h}
		c.store(key, e)
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*handleEntry), nil
}

// Len 返回当前未过期的句柄数量
func (c *HandleCache[H]) Len() int {
	return len(c.items.Items())
}

// Purge 清空缓存并关闭所有句柄
func (c *HandleCache[H]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items.Items() {
		c.items.Delete(k)
	}
	c.items.DeleteExpired()
}

func (c *HandleCache[H]) lookup(key string) (*handleEntry, bool) {
	v, found := c.items.Get(key)
	if !found {
		return nil, false
	}
	e, ok := v.(*handleEntry)
	return e, ok
}

func (c *HandleCache[H]) store(key string, e *handleEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 顺带清理已过期的句柄
	c.items.DeleteExpired()
	c.items.Set(key, e, c.ttl)

	items := c.items.Items()
	for len(items) > c.maxEntries {
		oldest := ""
		var oldestExp int64
		for k, it := range items {
			if k == key {
				continue
			}
			if oldest == "" || it.Expiration < oldestExp {
				oldest, oldestExp = k, it.Expiration
			}
		}
		if oldest == "" {
			return
		}
		c.items.Delete(oldest)
		delete(items, oldest)
	}
}

// handleEntry 记录句柄的借出数量，淘汰且无人借用时关闭
type handleEntry struct {
	handle  interface{}
	mu      sync.Mutex
	refs    int
	evicted bool
	closed  bool
}

func (e *handleEntry) acquire() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.refs++
	return true
}

func (e *handleEntry) release() {
	e.mu.Lock()
	e.refs--
	closeNow := e.evicted && e.refs == 0 && !e.closed
	if closeNow {
		e.closed = true
	}
	e.mu.Unlock()
	if closeNow {
		e.close()
	}
}

func (e *handleEntry) evict() {
	e.mu.Lock()
	e.evicted = true
	closeNow := e.refs == 0 && !e.closed
	if closeNow {
		e.closed = true
	}
	e.mu.Unlock()
	if closeNow {
		e.close()
	}
}

func (e *handleEntry) close() {
	if closer, ok := e.handle.(io.Closer); ok {
		_ = closer.Close()
	}
}

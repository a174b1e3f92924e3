package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Locker 阻塞式按 key 加锁，返回的 unlock 必须调用
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// KeyedMutex 进程内按 key 互斥，等待者按到达顺序排队，支持 ctx 取消。
// 同时实现 DistributedLock 以便与 RedisLock 互换。
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{} // 容量 1 的令牌
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*slot)}
}

func (m *KeyedMutex) acquireSlot(key string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	return s
}

func (m *KeyedMutex) releaseSlot(key string, s *slot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
}

func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	s := m.acquireSlot(key)
	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		m.releaseSlot(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			m.releaseSlot(key, s)
		})
	}, nil
}

func (m *KeyedMutex) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s := m.acquireSlot(key)
	select {
	case s.ch <- struct{}{}:
		return true, nil
	default:
		m.releaseSlot(key, s)
		return false, nil
	}
}

func (m *KeyedMutex) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	s, ok := m.slots[key]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("lock %s not held", key)
	}
	select {
	case <-s.ch:
		m.releaseSlot(key, s)
		return nil
	default:
		return fmt.Errorf("lock %s not held", key)
	}
}

// PollingLocker 把非阻塞的 DistributedLock 包装成阻塞 Locker，轮询直到获取成功或 ctx 结束
type PollingLocker struct {
	lock     DistributedLock
	ttl      time.Duration
	interval time.Duration
}

func NewPollingLocker(l DistributedLock, ttl, interval time.Duration) *PollingLocker {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &PollingLocker{lock: l, ttl: ttl, interval: interval}
}

func (p *PollingLocker) Lock(ctx context.Context, key string) (func(), error) {
	for {
		ok, err := p.lock.Acquire(ctx, key, p.ttl)
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() {
				// 释放不跟随调用方 ctx，避免 ctx 已取消导致锁残留到 TTL
				_ = p.lock.Release(context.Background(), key)
			}, nil
		}
		if err := sleepWithContext(ctx, p.interval); err != nil {
			return nil, err
		}
	}
}

// sleepWithContext waits for the duration or returns early if the context is canceled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

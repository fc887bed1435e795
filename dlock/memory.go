package dlock

import (
	"context"
	"sync"
	"time"
)

// memoryLocker 进程内锁实现，语义与 Redis 实现一致
// 适用于单元测试和单实例部署，不提供跨进程互斥
type memoryLocker struct {
	cfg *Config

	mu    sync.Mutex
	locks map[string]*memoryLockEntry
}

type memoryLockEntry struct {
	token     string
	expiresAt time.Time
}

// NewMemory 创建内存版 Locker
func NewMemory(cfg *Config, opts ...Option) (Locker, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &memoryLocker{
		cfg:   cfg,
		locks: make(map[string]*memoryLockEntry),
	}, nil
}

func (l *memoryLocker) Lock(ctx context.Context, key string, opts ...LockOption) error {
	for {
		ok, err := l.TryLock(ctx, key, opts...)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.cfg.RetryInterval):
		}
	}
}

func (l *memoryLocker) TryLock(ctx context.Context, key string, opts ...LockOption) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}

	lo := &lockOptions{TTL: l.cfg.DefaultTTL}
	for _, opt := range opts {
		opt(lo)
	}
	if lo.TTL <= 0 {
		lo.TTL = l.cfg.DefaultTTL
	}

	token, err := newToken()
	if err != nil {
		return false, err
	}

	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, exists := l.locks[key]; exists && now.Before(entry.expiresAt) {
		return false, nil
	}

	l.locks[key] = &memoryLockEntry{
		token:     token,
		expiresAt: now.Add(lo.TTL),
	}
	return true, nil
}

func (l *memoryLocker) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.locks[key]
	if !exists {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		// 锁已过期，条目只是尚未清理
		delete(l.locks, key)
		return nil
	}

	delete(l.locks, key)
	return nil
}

func (l *memoryLocker) Close() error {
	l.mu.Lock()
	l.locks = make(map[string]*memoryLockEntry)
	l.mu.Unlock()
	return nil
}

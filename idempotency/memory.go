package idempotency

import (
	"context"
	"sync"
	"time"
)

// memoryStore 内存存储实现（非导出，仅用于单机和测试）
// 语义与 Redis 实现一致：create-if-absent、finish-compare-created-at、
// takeover-compare-created-at
type memoryStore struct {
	mu      sync.Mutex
	prefix  string
	records map[string]*memoryRecord
}

type memoryRecord struct {
	rec       Record
	expiresAt time.Time
}

func newMemoryStore(prefix string) Store {
	return &memoryStore{
		prefix:  prefix,
		records: make(map[string]*memoryRecord),
	}
}

func (ms *memoryStore) Create(ctx context.Context, key string, rec *Record, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	skey := ms.prefix + key
	now := time.Now()

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if entry, ok := ms.records[skey]; ok && now.Before(entry.expiresAt) {
		return false, nil
	}

	ms.records[skey] = &memoryRecord{
		rec:       cloneRecord(rec),
		expiresAt: now.Add(ttl),
	}
	return true, nil
}

func (ms *memoryStore) Get(ctx context.Context, key string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	skey := ms.prefix + key
	now := time.Now()

	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, ok := ms.records[skey]
	if !ok {
		return nil, ErrRecordNotFound
	}
	if now.After(entry.expiresAt) {
		delete(ms.records, skey)
		return nil, ErrRecordNotFound
	}

	rec := cloneRecord(&entry.rec)
	return &rec, nil
}

func (ms *memoryStore) Finish(ctx context.Context, key string, expectedCreatedAt int64, status Status, payload []byte, processedAt int64, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	skey := ms.prefix + key
	now := time.Now()

	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, ok := ms.records[skey]
	if !ok || now.After(entry.expiresAt) {
		return false, nil
	}
	// CreatedAt 充当持有者凭证，接管后原持有者的迟到写入被拒绝
	if entry.rec.Status != StatusProcessing || entry.rec.CreatedAt != expectedCreatedAt {
		return false, nil
	}

	entry.rec.Status = status
	if status == StatusCompleted {
		entry.rec.Result = append([]byte(nil), payload...)
	} else {
		entry.rec.ErrPayload = append([]byte(nil), payload...)
	}
	entry.rec.ProcessedAt = processedAt
	entry.rec.ExpiresAt = now.Add(ttl).UnixMilli()
	entry.expiresAt = now.Add(ttl)
	return true, nil
}

func (ms *memoryStore) Takeover(ctx context.Context, key string, expectedCreatedAt int64, rec *Record, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	skey := ms.prefix + key
	now := time.Now()

	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, ok := ms.records[skey]
	if !ok || now.After(entry.expiresAt) {
		return false, nil
	}
	if entry.rec.Status != StatusProcessing || entry.rec.CreatedAt != expectedCreatedAt {
		return false, nil
	}

	ms.records[skey] = &memoryRecord{
		rec:       cloneRecord(rec),
		expiresAt: now.Add(ttl),
	}
	return true, nil
}

func cloneRecord(rec *Record) Record {
	clone := *rec
	clone.Result = append([]byte(nil), rec.Result...)
	clone.ErrPayload = append([]byte(nil), rec.ErrPayload...)
	return clone
}

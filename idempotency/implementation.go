package idempotency

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vendora-platform/vendora-core/clog"
	"github.com/vendora-platform/vendora-core/metrics"
	"github.com/vendora-platform/vendora-core/xerrors"
)

// coordinator 幂等性组件实现（非导出）
type coordinator struct {
	cfg    *Config
	store  Store
	logger clog.Logger
	meter  metrics.Meter
}

func newCoordinator(cfg *Config, store Store, logger clog.Logger, meter metrics.Meter) Idempotency {
	return &coordinator{
		cfg:    cfg,
		store:  store,
		logger: logger,
		meter:  meter,
	}
}

// AcquireLock 获取幂等执行权
func (c *coordinator) AcquireLock(ctx context.Context, key string, ref OperationRef) (*AcquireResult, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}
	if err := ValidateKey(key); err != nil {
		c.recordMetric(ctx, MetricInvalidKeysTotal, ref)
		return nil, err
	}

	skey := storageKey(key, ref)
	now := time.Now()

	// 记录先以 AcquireTTL 创建，结果落定时才延长至 DefaultTTL
	rec := &Record{
		Key:       key,
		Endpoint:  ref.Endpoint,
		Method:    ref.Method,
		UserID:    ref.UserID,
		Status:    StatusProcessing,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: now.Add(c.cfg.AcquireTTL).UnixMilli(),
	}

	created, err := c.store.Create(ctx, skey, rec, c.cfg.AcquireTTL)
	if err != nil {
		return nil, err
	}
	if created {
		c.recordMetric(ctx, MetricAcquisitionsTotal, ref)
		c.logger.DebugContext(ctx, "idempotency record created",
			clog.String("key", key), clog.String("endpoint", ref.Endpoint))
		return &AcquireResult{IsNew: true, Record: rec}, nil
	}

	existing, err := c.store.Get(ctx, skey)
	if err != nil {
		if xerrors.Is(err, ErrRecordNotFound) {
			// 记录在 Create 与 Get 之间过期，竞争窗口极小，按在途冲突处理
			return nil, ErrConflictInFlight
		}
		return nil, err
	}

	if existing.Finished() {
		c.recordMetric(ctx, MetricReplaysTotal, ref)
		c.logger.DebugContext(ctx, "idempotency result replayed",
			clog.String("key", key), clog.String("status", string(existing.Status)))
		return &AcquireResult{IsNew: false, Record: existing}, nil
	}

	// 处理中：窗口内拒绝，窗口外接管
	if existing.Age(now) < c.cfg.ProcessingWindow {
		c.recordMetric(ctx, MetricConflictsTotal, ref)
		return nil, xerrors.Wrapf(ErrConflictInFlight, "key: %s", key)
	}

	taken, err := c.store.Takeover(ctx, skey, existing.CreatedAt, rec, c.cfg.AcquireTTL)
	if err != nil {
		return nil, err
	}
	if !taken {
		// 其他请求抢先接管了这条记录
		c.recordMetric(ctx, MetricConflictsTotal, ref)
		return nil, xerrors.Wrapf(ErrConflictInFlight, "key: %s", key)
	}

	c.recordMetric(ctx, MetricTakeoversTotal, ref)
	c.logger.WarnContext(ctx, "stale idempotency record taken over",
		clog.String("key", key),
		clog.Duration("age", existing.Age(now)),
		clog.Duration("window", c.cfg.ProcessingWindow))
	return &AcquireResult{IsNew: true, Record: rec}, nil
}

// CompleteOperation 写入成功结果
func (c *coordinator) CompleteOperation(ctx context.Context, rec *Record, result []byte) error {
	return c.finish(ctx, rec, StatusCompleted, result)
}

// FailOperation 写入失败信息
func (c *coordinator) FailOperation(ctx context.Context, rec *Record, errPayload []byte) error {
	return c.finish(ctx, rec, StatusFailed, errPayload)
}

func (c *coordinator) finish(ctx context.Context, rec *Record, status Status, payload []byte) error {
	if rec == nil || rec.Key == "" {
		return ErrKeyEmpty
	}

	ref := OperationRef{Endpoint: rec.Endpoint, Method: rec.Method, UserID: rec.UserID}
	// rec.CreatedAt 充当持有者凭证：记录被接管后凭证失配，迟到的写入被拒绝
	ok, err := c.store.Finish(ctx, storageKey(rec.Key, ref), rec.CreatedAt,
		status, payload, time.Now().UnixMilli(), c.cfg.DefaultTTL)
	if err != nil {
		return err
	}
	if !ok {
		// 记录已被接管或过期，本次执行的结果作废
		c.logger.WarnContext(ctx, "idempotency result discarded",
			clog.String("key", rec.Key), clog.String("status", string(status)))
		return xerrors.Wrapf(ErrNotProcessing, "key: %s", rec.Key)
	}
	return nil
}

// Execute 执行幂等操作
func (c *coordinator) Execute(ctx context.Context, key string, ref OperationRef, fn func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	acquired, err := c.AcquireLock(ctx, key, ref)
	if err != nil {
		return nil, err
	}

	if !acquired.IsNew {
		if acquired.Record.Status == StatusFailed {
			return acquired.Record.ErrPayload, xerrors.Wrapf(xerrors.ErrConflict,
				"operation previously failed, key: %s", key)
		}
		return acquired.Record.Result, nil
	}

	result, err := fn(ctx)
	if err != nil {
		if failErr := c.FailOperation(ctx, acquired.Record, []byte(err.Error())); failErr != nil {
			c.logger.ErrorContext(ctx, "failed to record operation failure",
				clog.String("key", key), clog.Error(failErr))
		}
		return nil, err
	}

	if err := c.CompleteOperation(ctx, acquired.Record, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *coordinator) recordMetric(ctx context.Context, name string, ref OperationRef) {
	if c.meter == nil {
		return
	}
	if counter, err := c.meter.Counter(name, "Idempotency coordinator events"); err == nil && counter != nil {
		counter.Inc(ctx, metrics.L(LabelEndpoint, ref.Endpoint))
	}
}

// ValidateKey 校验幂等键是否为合法的 UUID v4
// 大小写不敏感；非法键返回 ErrInvalidKey
func ValidateKey(key string) error {
	id, err := uuid.Parse(key)
	if err != nil {
		return xerrors.Wrapf(ErrInvalidKey, "key: %q", key)
	}
	// uuid.Parse 额外接受 urn 前缀、大括号和无连字符形式，这里只接受标准形式
	if len(key) != 36 {
		return xerrors.Wrapf(ErrInvalidKey, "key: %q", key)
	}
	if id.Version() != 4 || id.Variant() != uuid.RFC4122 {
		return xerrors.Wrapf(ErrInvalidKey, "key: %q", key)
	}
	return nil
}

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/vendora-platform/vendora-core/cache/serializer"
	"github.com/vendora-platform/vendora-core/clog"
	"github.com/vendora-platform/vendora-core/dlock"
	"github.com/vendora-platform/vendora-core/metrics"
	"github.com/vendora-platform/vendora-core/xerrors"
)

// stampedeWaits 非持有者的等待节奏：等 100ms 复查，再等 200ms 复查，
// 之后放弃等待自行回源。同一批并发请求最多触发三次计算（持有者一次 +
// 两个降级批次），不会退化为全量击穿
var stampedeWaits = []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}

// core 两种驱动共享的回源协调与统计逻辑
type core struct {
	cfg        *Config
	serializer serializer.Serializer
	locker     dlock.Locker
	ownsLocker bool
	logger     clog.Logger
	meter      metrics.Meter
	stats      statsCounters
	mode       string

	sweepMu   sync.Mutex
	sweepStop chan struct{}
	sweepDone chan struct{}

	hitsCounter       metrics.Counter
	missesCounter     metrics.Counter
	computesCounter   metrics.Counter
	contentionCounter metrics.Counter
	degradedCounter   metrics.Counter
	hitRatioGauge     metrics.Gauge
}

func newCore(cfg *Config, s serializer.Serializer, locker dlock.Locker, ownsLocker bool, mode string, logger clog.Logger, meter metrics.Meter) *core {
	c := &core{
		cfg:        cfg,
		serializer: s,
		locker:     locker,
		ownsLocker: ownsLocker,
		logger:     logger,
		meter:      meter,
		mode:       mode,
	}
	if meter != nil {
		c.hitsCounter, _ = meter.Counter(MetricHitsTotal, "Number of cache hits")
		c.missesCounter, _ = meter.Counter(MetricMissesTotal, "Number of cache misses")
		c.computesCounter, _ = meter.Counter(MetricComputesTotal, "Number of source computations")
		c.contentionCounter, _ = meter.Counter(MetricLockContentionsTotal, "Number of contended source locks")
		c.degradedCounter, _ = meter.Counter(MetricDegradedComputesTotal, "Number of degraded computations after lock wait")
		c.hitRatioGauge, _ = meter.Gauge(MetricHitRatio, "Aggregate cache hit ratio")
	}
	return c
}

// ComputeFunc 回源计算函数，仅在缓存未命中时调用
type ComputeFunc func(ctx context.Context) (any, error)

// getFunc / setFunc 由具体驱动提供的读写原语
type getFunc func(ctx context.Context, key string, dest any) error
type setFunc func(ctx context.Context, key string, value any, ttl time.Duration) error

// getOrSet 防击穿回源流程
//
// 锁持有者在所有退出路径上释放锁：计算失败时不缓存任何内容，
// 错误原样返回，锁同样被释放。
func (c *core) getOrSet(ctx context.Context, key string, dest any, fn ComputeFunc, get getFunc, set setFunc, opts ...GetOrSetOption) error {
	if key == "" {
		return ErrKeyEmpty
	}

	err := get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !xerrors.Is(err, ErrCacheMiss) {
		return err
	}

	o := getOrSetOptions{TTL: c.cfg.DefaultTTL}
	for _, opt := range opts {
		opt(&o)
	}

	if c.cfg.DisableStampedeProtection || o.DisableProtection || c.locker == nil {
		return c.computeAndStore(ctx, key, dest, fn, set, o.TTL)
	}

	acquired, err := c.locker.TryLock(ctx, key, dlock.WithTTL(c.cfg.LockTTL))
	if err != nil {
		// 锁存储故障时退化为直接回源，缓存不可用不应放大为业务失败
		c.logger.WarnContext(ctx, "source lock unavailable, computing without protection",
			clog.String("key", key), clog.Error(err))
		return c.computeAndStore(ctx, key, dest, fn, set, o.TTL)
	}

	if acquired {
		defer func() {
			if err := c.locker.Unlock(ctx, key); err != nil {
				c.logger.WarnContext(ctx, "failed to release source lock",
					clog.String("key", key), clog.Error(err))
			}
		}()

		// 拿到锁后复查：前一个持有者可能已经完成回填
		if err := get(ctx, key, dest); err == nil {
			return nil
		} else if !xerrors.Is(err, ErrCacheMiss) {
			return err
		}

		return c.computeAndStore(ctx, key, dest, fn, set, o.TTL)
	}

	// 未抢到锁：等待持有者回填，两轮复查后走降级路径
	c.recordContention(ctx)
	for _, wait := range stampedeWaits {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		if err := get(ctx, key, dest); err == nil {
			return nil
		} else if !xerrors.Is(err, ErrCacheMiss) {
			return err
		}
	}

	c.recordDegraded(ctx)
	c.logger.WarnContext(ctx, "lock holder did not fill cache in time, computing anyway",
		clog.String("key", key))
	return c.computeAndStore(ctx, key, dest, fn, set, o.TTL)
}

func (c *core) computeAndStore(ctx context.Context, key string, dest any, fn ComputeFunc, set setFunc, ttl time.Duration) error {
	c.recordCompute(ctx)

	value, err := fn(ctx)
	if err != nil {
		return err
	}

	if err := set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.assign(value, dest)
}

// assign 将计算结果写入 dest，经过序列化往返保证与缓存读取路径同构
func (c *core) assign(value any, dest any) error {
	data, err := c.serializer.Marshal(value)
	if err != nil {
		return xerrors.Wrap(err, "failed to marshal computed value")
	}
	if err := c.serializer.Unmarshal(data, dest); err != nil {
		return xerrors.Wrap(err, "failed to assign computed value")
	}
	return nil
}

// StartSweeper 启动周期性清扫协程，上报聚合统计
// 重复调用是无操作；Close 时停止
func (c *core) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()
	if c.sweepStop != nil {
		return
	}
	c.sweepStop = make(chan struct{})
	c.sweepDone = make(chan struct{})

	go c.sweep(interval, c.sweepStop, c.sweepDone)
}

func (c *core) sweep(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			snap := c.stats.snapshot()
			c.logger.Info("cache stats",
				clog.String("mode", c.mode),
				clog.Int64("hits", int64(snap.Hits)),
				clog.Int64("misses", int64(snap.Misses)),
				clog.Int64("computes", int64(snap.Computes)),
				clog.Int64("lock_contentions", int64(snap.LockContentions)),
				clog.Int64("degraded_computes", int64(snap.DegradedComputes)),
				clog.Float64("hit_ratio", snap.HitRatio()))
			if c.hitRatioGauge != nil {
				c.hitRatioGauge.Set(context.Background(), snap.HitRatio(), metrics.L(LabelMode, c.mode))
			}
		}
	}
}

// Stats 返回当前聚合统计快照
func (c *core) Stats() Stats {
	return c.stats.snapshot()
}

// close 停止清扫协程并释放自建的锁资源
func (c *core) close() error {
	c.sweepMu.Lock()
	if c.sweepStop != nil {
		close(c.sweepStop)
		<-c.sweepDone
		c.sweepStop = nil
		c.sweepDone = nil
	}
	c.sweepMu.Unlock()

	if c.ownsLocker && c.locker != nil {
		return c.locker.Close()
	}
	return nil
}

func (c *core) recordHit(ctx context.Context) {
	c.stats.hits.Add(1)
	if c.hitsCounter != nil {
		c.hitsCounter.Inc(ctx, metrics.L(LabelMode, c.mode))
	}
}

func (c *core) recordMiss(ctx context.Context) {
	c.stats.misses.Add(1)
	if c.missesCounter != nil {
		c.missesCounter.Inc(ctx, metrics.L(LabelMode, c.mode))
	}
}

func (c *core) recordCompute(ctx context.Context) {
	c.stats.computes.Add(1)
	if c.computesCounter != nil {
		c.computesCounter.Inc(ctx, metrics.L(LabelMode, c.mode))
	}
}

func (c *core) recordContention(ctx context.Context) {
	c.stats.lockContentions.Add(1)
	if c.contentionCounter != nil {
		c.contentionCounter.Inc(ctx, metrics.L(LabelMode, c.mode))
	}
}

func (c *core) recordDegraded(ctx context.Context) {
	c.stats.degradedComputes.Add(1)
	if c.degradedCounter != nil {
		c.degradedCounter.Inc(ctx, metrics.L(LabelMode, c.mode))
	}
}

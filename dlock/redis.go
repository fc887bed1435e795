package dlock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vendora-platform/vendora-core/clog"
	"github.com/vendora-platform/vendora-core/connector"
	"github.com/vendora-platform/vendora-core/metrics"
	"github.com/vendora-platform/vendora-core/xerrors"
)

// releaseScript 只有 token 匹配时才删除锁条目
// 返回 1 表示删除成功，0 表示锁已过期或已被他人持有
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

type redisLocker struct {
	client *redis.Client
	cfg    *Config
	logger clog.Logger

	// locks 记录本进程持有的锁 token，仅用于 Unlock 比对和观测
	// 锁的真实状态以存储层为准
	locks map[string]string
	mu    sync.Mutex

	acquiredCounter  metrics.Counter
	contendedCounter metrics.Counter
	releasedCounter  metrics.Counter
	expiredCounter   metrics.Counter
}

// NewRedis 创建 Redis 分布式锁
//
// 参数:
//   - conn: Redis 连接器，需已 Connect
//   - cfg: DLock 配置
//   - opts: 可选参数 (Logger, Meter)
func NewRedis(conn connector.RedisConnector, cfg *Config, opts ...Option) (Locker, error) {
	if conn == nil {
		return nil, ErrConnectorNil
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	if opt.logger == nil {
		opt.logger = clog.Default().WithNamespace("dlock")
	}

	l := &redisLocker{
		client: conn.GetClient(),
		cfg:    cfg,
		logger: opt.logger,
		locks:  make(map[string]string),
	}
	if opt.meter != nil {
		l.acquiredCounter, _ = opt.meter.Counter(MetricLockAcquired, "Number of successful lock acquisitions")
		l.contendedCounter, _ = opt.meter.Counter(MetricLockContended, "Number of contended lock attempts")
		l.releasedCounter, _ = opt.meter.Counter(MetricLockReleased, "Number of lock releases")
		l.expiredCounter, _ = opt.meter.Counter(MetricLockExpiredOnUnlock, "Number of unlocks that found the lock expired")
	}
	return l, nil
}

func (l *redisLocker) Lock(ctx context.Context, key string, opts ...LockOption) error {
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

func (l *redisLocker) TryLock(ctx context.Context, key string, opts ...LockOption) (bool, error) {
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

	ok, err := l.client.SetNX(ctx, l.redisKey(key), token, lo.TTL).Result()
	if err != nil {
		return false, xerrors.Wrap(err, "failed to acquire lock")
	}
	if !ok {
		if l.contendedCounter != nil {
			l.contendedCounter.Inc(ctx, metrics.L(LabelBackend, "redis"))
		}
		return false, nil
	}

	l.mu.Lock()
	l.locks[key] = token
	l.mu.Unlock()

	if l.acquiredCounter != nil {
		l.acquiredCounter.Inc(ctx, metrics.L(LabelBackend, "redis"))
	}
	l.logger.DebugContext(ctx, "lock acquired",
		clog.String("key", key), clog.Duration("ttl", lo.TTL))
	return true, nil
}

func (l *redisLocker) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	token, exists := l.locks[key]
	delete(l.locks, key)
	l.mu.Unlock()

	if !exists {
		// 本进程未持有该锁，释放是幂等的
		return nil
	}

	result, err := l.client.Eval(ctx, releaseScript, []string{l.redisKey(key)}, token).Result()
	if err != nil {
		return xerrors.Wrap(err, "failed to release lock")
	}

	if result.(int64) == 0 {
		// 锁已过期或被其他持有者刷新，不视为错误
		if l.expiredCounter != nil {
			l.expiredCounter.Inc(ctx, metrics.L(LabelBackend, "redis"))
		}
		l.logger.WarnContext(ctx, "lock already expired on unlock", clog.String("key", key))
		return nil
	}

	if l.releasedCounter != nil {
		l.releasedCounter.Inc(ctx, metrics.L(LabelBackend, "redis"))
	}
	l.logger.DebugContext(ctx, "lock released", clog.String("key", key))
	return nil
}

// Close 关闭 Redis Locker
// Redis Locker 不拥有底层连接，因此只清理本地状态
func (l *redisLocker) Close() error {
	l.mu.Lock()
	l.locks = make(map[string]string)
	l.mu.Unlock()
	return nil
}

func (l *redisLocker) redisKey(key string) string {
	return l.cfg.Prefix + key
}

// newToken 生成随机持有者标识
func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", xerrors.Wrap(err, "failed to generate random token")
	}
	return hex.EncodeToString(buf), nil
}

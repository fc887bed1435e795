// Package idempotency 提供幂等性协调组件，保证关键操作"一次且仅一次"落定。
//
// 客户端为每次操作生成一个 UUID v4 幂等键，通过 Idempotency-Key 请求头携带。
// 组件以共享存储中的记录为准绳：
//   - 首次请求原子创建处理中记录并执行业务逻辑
//   - 重复请求直接重放缓存的结果，字节级一致
//   - 处理窗口（默认 30s）内的并发请求被拒绝
//   - 窗口外仍未落定的记录视为持有者崩溃，由新请求原子接管
//
// ## 基本使用
//
//	idem, _ := idempotency.New(&idempotency.Config{
//	    Prefix:     "idempotency:",
//	    DefaultTTL: 24 * time.Hour,
//	}, idempotency.WithRedisConnector(redisConn), idempotency.WithLogger(logger))
//
//	ref := idempotency.OperationRef{Endpoint: "/api/orders", Method: "POST", UserID: uid}
//	result, err := idem.Execute(ctx, key, ref, func(ctx context.Context) ([]byte, error) {
//	    return createOrder(ctx, req)
//	})
//
// ## Gin 中间件
//
//	r := gin.Default()
//	r.Use(idem.GinMiddleware())
//	r.POST("/api/orders", createOrderHandler)
//
// 中间件只拦截配置的关键路由，其余路由完全透传。
package idempotency

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/vendora-platform/vendora-core/clog"
	"github.com/vendora-platform/vendora-core/xerrors"
)

// Idempotency 幂等性组件核心接口
//
// 两种使用方式：
//  1. AcquireLock / CompleteOperation / FailOperation: 细粒度控制，HTTP 中间件使用
//  2. Execute: 高阶封装，业务层直接使用
type Idempotency interface {
	// AcquireLock 获取幂等执行权
	//
	// 返回值的三种形态：
	//   - IsNew=true: 本次调用创建（或接管）了记录，调用方应执行业务逻辑，
	//     并在结束时调用 CompleteOperation 或 FailOperation
	//   - IsNew=false: 记录已有落定结果，Record 携带缓存的 Result/ErrPayload，
	//     调用方应原样重放，不得重新执行
	//   - error: ErrInvalidKey（键不是 UUID v4，无副作用）、
	//     ErrConflictInFlight（同键请求仍在处理窗口内）
	AcquireLock(ctx context.Context, key string, ref OperationRef) (*AcquireResult, error)

	// CompleteOperation 将成功结果附加到 AcquireLock 返回的记录
	// rec 为获得执行权时拿到的 Record，其 CreatedAt 充当持有者凭证；
	// 记录已被接管或过期时返回 ErrNotProcessing，本次结果作废
	CompleteOperation(ctx context.Context, rec *Record, result []byte) error

	// FailOperation 将失败信息附加到 AcquireLock 返回的记录
	FailOperation(ctx context.Context, rec *Record, errPayload []byte) error

	// Execute 执行幂等操作，封装 acquire → fn → complete/fail 的完整流程
	// 重复请求返回缓存结果，fn 不会执行
	Execute(ctx context.Context, key string, ref OperationRef, fn func(ctx context.Context) ([]byte, error)) ([]byte, error)

	// GinMiddleware 创建 Gin 中间件，对配置的关键路由强制幂等键
	GinMiddleware(opts ...MiddlewareOption) gin.HandlerFunc
}

// New 创建幂等性组件实例
//
// 参数：
//   - cfg: 幂等性配置，nil 时使用默认值
//   - opts: 可选配置，如 WithRedisConnector(), WithLogger(), WithMeter()
//
// DriverRedis（默认）需要通过 WithRedisConnector 注入连接器；
// DriverMemory 适用于单机部署和测试。
func New(cfg *Config, opts ...Option) (Idempotency, error) {
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

	logger := opt.logger
	if logger == nil {
		logger = clog.Default().WithNamespace("idempotency")
	}

	store := opt.store
	if store == nil {
		switch cfg.Driver {
		case DriverRedis:
			if opt.redisConn == nil {
				return nil, xerrors.Wrap(ErrConnectorNil, "use WithRedisConnector")
			}
			store = newRedisStore(opt.redisConn, cfg.Prefix)
		case DriverMemory:
			store = newMemoryStore(cfg.Prefix)
		}
	}

	logger.Info("creating idempotency component",
		clog.String("driver", string(cfg.Driver)),
		clog.String("prefix", cfg.Prefix),
		clog.Duration("default_ttl", cfg.DefaultTTL),
		clog.Duration("processing_window", cfg.ProcessingWindow))

	return newCoordinator(cfg, store, logger, opt.meter), nil
}

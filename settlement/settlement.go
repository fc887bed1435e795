// Package settlement 提供商家日结算组件。
//
// 结算按自然日进行：聚合当日全部交易，计算可结算金额、平台手续费与应付净额，
// 并以结算日期为唯一键落库。同一日期的结算具有幂等语义：
// 已完成的结算单不会被重复生成，失败的结算单可以通过 RetryFailed 原地重跑。
//
// 并发保护依赖 dlock 组件：每个结算日期对应一把分布式锁，
// 同一日期的并发结算请求只有一个会真正执行，其余收到 ErrInProgress。
//
// ## 基本使用
//
//	svc, _ := settlement.New(database, locker, &settlement.Config{}, settlement.WithLogger(logger))
//	defer svc.Close()
//
//	// 手动结算指定日期
//	rec, err := svc.SettleDate(ctx, "2026-08-30")
//
//	// 启动每日自动结算（结算前一个自然日）
//	svc.StartScheduler()
//
// ## 设计原则
//
// - **借用模型**：db 与 locker 由调用方注入并管理生命周期
// - **幂等结算**：结算日期唯一索引 + 分布式锁双重保护
// - **失败可重试**：失败记录保留错误信息，重试在原记录上进行
package settlement

import (
	"context"

	"github.com/vendora-platform/vendora-core/clog"
	"github.com/vendora-platform/vendora-core/db"
	"github.com/vendora-platform/vendora-core/dlock"
)

// Settlement 定义了结算组件的核心能力
type Settlement interface {
	// SettleDate 结算指定日期 (格式 "2006-01-02") 的全部交易
	//
	// 幂等语义:
	//   - 该日期已有非失败状态的结算单时跳过执行，返回已有记录
	//   - 该日期的结算单为失败状态时原地重跑
	//   - 同一日期的并发调用只有一个执行，其余返回 ErrInProgress
	SettleDate(ctx context.Context, date string) (*SettlementRecord, error)

	// RetryFailed 重试失败的结算
	// 仅当该日期的结算单处于失败状态时允许，否则返回 ErrNotFailed
	RetryFailed(ctx context.Context, date string) (*SettlementRecord, error)

	// GetByDate 查询指定日期的结算单
	GetByDate(ctx context.Context, date string) (*SettlementRecord, error)

	// History 返回最近的结算单，按日期倒序
	// limit <= 0 时使用配置的默认条数
	History(ctx context.Context, limit int) ([]SettlementRecord, error)

	// Stats 统计最近 days 天的结算汇总
	Stats(ctx context.Context, days int) (*Stats, error)

	// StartScheduler 启动每日自动结算任务，重复调用是幂等的
	StartScheduler() error

	// AutoMigrate 创建结算相关表结构
	AutoMigrate() error

	// Close 停止调度器并释放组件资源，不关闭注入的依赖
	Close() error
}

// New 创建结算组件实例
//
// 参数:
//   - database: db 组件，需已完成初始化
//   - locker: 分布式锁，用于结算互斥
//   - cfg: 结算配置
//   - opts: 可选参数 (Logger, Meter)
func New(database db.DB, locker dlock.Locker, cfg *Config, opts ...Option) (Settlement, error) {
	if database == nil {
		return nil, ErrDBNil
	}
	if locker == nil {
		return nil, ErrLockerNil
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
		opt.logger = clog.Default().WithNamespace("settlement")
	}

	svc := &service{
		cfg:    cfg,
		db:     database,
		store:  &store{db: database},
		locker: locker,
		logger: opt.logger,
	}
	if opt.meter != nil {
		svc.runCounter, _ = opt.meter.Counter(MetricSettlementRuns, "Number of settlement runs by outcome")
		svc.skipCounter, _ = opt.meter.Counter(MetricSettlementSkipped, "Number of settlement runs skipped because a record already exists")
		svc.volumeCounter, _ = opt.meter.Counter(MetricSettlementVolume, "Total settled volume")
	}
	return svc, nil
}

package settlement

import (
	"context"
	"math"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/vendora-platform/vendora-core/clog"
	"github.com/vendora-platform/vendora-core/db"
	"github.com/vendora-platform/vendora-core/dlock"
	"github.com/vendora-platform/vendora-core/metrics"
	"github.com/vendora-platform/vendora-core/xerrors"
)

// service 是 Settlement 接口的实现
type service struct {
	cfg    *Config
	db     db.DB
	store  *store
	locker dlock.Locker
	logger clog.Logger

	schedMu   sync.Mutex
	scheduler *scheduler

	runCounter    metrics.Counter
	skipCounter   metrics.Counter
	volumeCounter metrics.Counter
}

// SettleDate 结算指定日期的全部交易
func (s *service) SettleDate(ctx context.Context, date string) (*SettlementRecord, error) {
	return s.settle(ctx, date, "manual")
}

// RetryFailed 重试失败的结算
func (s *service) RetryFailed(ctx context.Context, date string) (*SettlementRecord, error) {
	if _, err := time.ParseInLocation(DateLayout, date, time.Local); err != nil {
		return nil, ErrInvalidDate
	}

	existing, err := s.store.getByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if existing.Status != StatusFailed {
		return nil, ErrNotFailed
	}
	return s.settle(ctx, date, "retry")
}

// settle 是手动结算、定时结算与重试共用的执行路径
func (s *service) settle(ctx context.Context, date, trigger string) (*SettlementRecord, error) {
	day, err := time.ParseInLocation(DateLayout, date, time.Local)
	if err != nil {
		return nil, ErrInvalidDate
	}

	lockKey := s.cfg.LockPrefix + date
	ok, err := s.locker.TryLock(ctx, lockKey, dlock.WithTTL(s.cfg.LockTTL))
	if err != nil {
		return nil, xerrors.Wrap(err, "acquire settlement lock")
	}
	if !ok {
		return nil, ErrInProgress
	}
	defer func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), lockKey); err != nil {
			s.logger.WarnContext(ctx, "failed to release settlement lock",
				clog.String("date", date), clog.Error(err))
		}
	}()

	// 持锁后复查，避免锁竞争窗口内重复结算
	existing, err := s.store.getByDate(ctx, date)
	if err != nil && !xerrors.Is(err, ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status != StatusFailed {
		s.logger.WarnContext(ctx, "settlement already exists, skipping",
			clog.String("date", date), clog.String("status", existing.Status))
		if s.skipCounter != nil {
			s.skipCounter.Inc(ctx, metrics.L(LabelTrigger, trigger))
		}
		return existing, nil
	}

	rec, err := s.run(ctx, date, day, existing)
	result := StatusCompleted
	if err != nil {
		result = StatusFailed
	}
	if s.runCounter != nil {
		s.runCounter.Inc(ctx, metrics.L(LabelResult, result), metrics.L(LabelTrigger, trigger))
	}
	if err == nil && s.volumeCounter != nil {
		s.volumeCounter.Add(ctx, rec.SettlementAmount)
	}
	return rec, err
}

// run 在单个事务内完成聚合与落库
// existing 非 nil 时（失败重试）在原记录上重跑，否则新建记录
func (s *service) run(ctx context.Context, date string, day time.Time, existing *SettlementRecord) (*SettlementRecord, error) {
	start := time.Now()
	startOfDay := day
	endOfDay := day.AddDate(0, 0, 1)

	rec := existing
	if rec == nil {
		rec = &SettlementRecord{SettlementDate: date}
	}
	rec.Status = StatusPending
	rec.ErrorMessage = ""
	rec.ProcessedAt = nil

	// 先以 pending 落库，结算单一经产生即对查询可见
	if err := s.store.save(ctx, rec); err != nil {
		return nil, xerrors.Wrap(err, "create settlement record")
	}

	txErr := s.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		rec.Status = StatusProcessing
		if err := tx.Save(rec).Error; err != nil {
			return xerrors.Wrap(err, "save settlement record")
		}

		agg, err := s.store.aggregateDay(tx, startOfDay, endOfDay)
		if err != nil {
			return err
		}

		now := time.Now()
		rec.TotalTransactions = agg.TotalTransactions
		rec.TotalVolume = round2(agg.TotalVolume)
		rec.SuccessfulCount = agg.SuccessfulCount
		rec.FailedCount = agg.FailedCount
		rec.SettlementAmount = round2(agg.SettlementAmount)
		rec.Fees = round2(rec.SettlementAmount * s.cfg.FeeRate)
		rec.NetAmount = round2(rec.SettlementAmount - rec.Fees)
		rec.Status = StatusCompleted
		rec.ProcessedAt = &now

		return tx.Save(rec).Error
	})

	if txErr != nil {
		now := time.Now()
		rec.Status = StatusFailed
		rec.ErrorMessage = truncate(txErr.Error(), 512)
		rec.ProcessedAt = &now
		if saveErr := s.store.save(ctx, rec); saveErr != nil {
			s.logger.ErrorContext(ctx, "failed to persist failed settlement record",
				clog.String("date", date), clog.Error(saveErr))
		}
		s.logger.ErrorContext(ctx, "settlement failed",
			clog.String("date", date), clog.Error(txErr))
		return rec, xerrors.Wrapf(txErr, "settle %s", date)
	}

	s.logger.InfoContext(ctx, "settlement completed",
		clog.String("date", date),
		clog.Int64("transactions", rec.TotalTransactions),
		clog.Float64("volume", rec.TotalVolume),
		clog.Float64("net_amount", rec.NetAmount),
		clog.Duration("elapsed", time.Since(start)))
	return rec, nil
}

// GetByDate 查询指定日期的结算单
func (s *service) GetByDate(ctx context.Context, date string) (*SettlementRecord, error) {
	if _, err := time.ParseInLocation(DateLayout, date, time.Local); err != nil {
		return nil, ErrInvalidDate
	}
	return s.store.getByDate(ctx, date)
}

// History 返回最近的结算单，按日期倒序
func (s *service) History(ctx context.Context, limit int) ([]SettlementRecord, error) {
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}
	return s.store.listRecent(ctx, limit)
}

// Stats 统计最近 days 天的结算汇总
func (s *service) Stats(ctx context.Context, days int) (*Stats, error) {
	if days <= 0 {
		days = 7
	}
	return s.store.statsSince(ctx, days)
}

// AutoMigrate 创建结算相关表结构
func (s *service) AutoMigrate() error {
	return s.db.AutoMigrate(&Transaction{}, &SettlementRecord{})
}

// StartScheduler 启动每日自动结算任务
func (s *service) StartScheduler() error {
	s.schedMu.Lock()
	defer s.schedMu.Unlock()

	if s.scheduler != nil {
		return nil
	}
	sched, err := newScheduler(s, s.cfg.CronSpec, s.logger)
	if err != nil {
		return err
	}
	sched.start()
	s.scheduler = sched
	return nil
}

// Close 停止调度器，不关闭注入的 db 与 locker
func (s *service) Close() error {
	s.schedMu.Lock()
	defer s.schedMu.Unlock()

	if s.scheduler != nil {
		s.scheduler.stop()
		s.scheduler = nil
	}
	return nil
}

// round2 金额保留两位小数
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

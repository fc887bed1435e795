package settlement

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vendora-platform/vendora-core/clog"
	"github.com/vendora-platform/vendora-core/xerrors"
)

// scheduler 封装 cron 定时任务，每次触发时结算前一个自然日
type scheduler struct {
	cron   *cron.Cron
	svc    *service
	logger clog.Logger
}

func newScheduler(svc *service, spec string, logger clog.Logger) (*scheduler, error) {
	sched := &scheduler{
		cron:   cron.New(),
		svc:    svc,
		logger: logger,
	}
	if _, err := sched.cron.AddFunc(spec, sched.runOnce); err != nil {
		return nil, xerrors.Wrapf(err, "invalid cron spec %q", spec)
	}
	return sched, nil
}

func (s *scheduler) start() {
	s.cron.Start()
	s.logger.Info("settlement scheduler started",
		clog.String("spec", s.svc.cfg.CronSpec))
}

// stop 停止调度并等待正在执行的任务结束
func (s *scheduler) stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("settlement scheduler stopped")
}

// runOnce 结算前一个自然日
// 已结算的日期会在 settle 内部跳过，失败只记录日志，等待下次触发或人工重试
func (s *scheduler) runOnce() {
	date := time.Now().AddDate(0, 0, -1).Format(DateLayout)
	ctx, cancel := context.WithTimeout(context.Background(), s.svc.cfg.LockTTL)
	defer cancel()

	if _, err := s.svc.settle(ctx, date, "cron"); err != nil {
		if xerrors.Is(err, ErrInProgress) {
			s.logger.WarnContext(ctx, "scheduled settlement skipped, another run in progress",
				clog.String("date", date))
			return
		}
		s.logger.ErrorContext(ctx, "scheduled settlement failed",
			clog.String("date", date), clog.Error(err))
		return
	}
	s.logger.InfoContext(ctx, "scheduled settlement finished", clog.String("date", date))
}

package settlement

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vendora-platform/vendora-core/db"
	"github.com/vendora-platform/vendora-core/xerrors"
)

// store 封装结算相关的数据库访问
type store struct {
	db db.DB
}

// aggregateDay 聚合 [start, end) 区间内的交易
// 一条 SQL 完成全部统计，SQLite 与 MySQL 均兼容
func (s *store) aggregateDay(tx *gorm.DB, start, end time.Time) (dayAggregate, error) {
	var agg dayAggregate
	err := tx.Model(&Transaction{}).
		Select(`COUNT(*) AS total_transactions,
			COALESCE(SUM(amount), 0) AS total_volume,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS successful_count,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS failed_count,
			COALESCE(SUM(CASE WHEN status = ? THEN amount ELSE 0 END), 0) AS settlement_amount`,
			TxnStatusCompleted, TxnStatusFailed, TxnStatusCompleted).
		Where("created_at >= ? AND created_at < ?", start, end).
		Scan(&agg).Error
	if err != nil {
		return dayAggregate{}, xerrors.Wrap(err, "aggregate transactions")
	}
	return agg, nil
}

// getByDate 查询指定日期的结算单，不存在时返回 ErrRecordNotFound
func (s *store) getByDate(ctx context.Context, date string) (*SettlementRecord, error) {
	var rec SettlementRecord
	err := s.db.DB(ctx).Where("settlement_date = ?", date).First(&rec).Error
	if err != nil {
		if xerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, xerrors.Wrap(err, "query settlement record")
	}
	return &rec, nil
}

// save 保存（插入或更新）结算单
func (s *store) save(ctx context.Context, rec *SettlementRecord) error {
	if err := s.db.DB(ctx).Save(rec).Error; err != nil {
		return xerrors.Wrap(err, "save settlement record")
	}
	return nil
}

// listRecent 返回最近的结算单，按日期倒序
func (s *store) listRecent(ctx context.Context, limit int) ([]SettlementRecord, error) {
	var recs []SettlementRecord
	err := s.db.DB(ctx).
		Order("settlement_date DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, xerrors.Wrap(err, "list settlement records")
	}
	return recs, nil
}

// statsSince 统计最近 days 个结算日的汇总信息
func (s *store) statsSince(ctx context.Context, days int) (*Stats, error) {
	since := time.Now().AddDate(0, 0, -days).Format(DateLayout)

	var rows []SettlementRecord
	err := s.db.DB(ctx).
		Where("settlement_date >= ?", since).
		Find(&rows).Error
	if err != nil {
		return nil, xerrors.Wrap(err, "query settlement stats")
	}

	stats := &Stats{Days: days}
	for _, r := range rows {
		switch r.Status {
		case StatusCompleted:
			stats.CompletedRuns++
		case StatusFailed:
			stats.FailedRuns++
		}
		stats.TotalVolume += r.TotalVolume
		stats.TotalTransactions += r.TotalTransactions
	}
	if n := stats.CompletedRuns + stats.FailedRuns; n > 0 {
		stats.AvgTransactionsPerDay = round2(float64(stats.TotalTransactions) / float64(n))
	}
	stats.TotalVolume = round2(stats.TotalVolume)
	return stats, nil
}

package settlement

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendora-platform/vendora-core/db"
	"github.com/vendora-platform/vendora-core/dlock"
	"github.com/vendora-platform/vendora-core/testkit"
	"github.com/vendora-platform/vendora-core/xerrors"
)

const testDate = "2026-08-30"

func newTestService(t *testing.T) (Settlement, db.DB) {
	t.Helper()

	conn := testkit.NewPersistentSQLiteConnector(t)
	database, err := db.New(conn, &db.Config{Driver: "sqlite"}, db.WithSilentMode())
	require.NoError(t, err)

	locker, err := dlock.NewMemory(&dlock.Config{}, dlock.WithLogger(testkit.NewLogger()))
	require.NoError(t, err)

	svc, err := New(database, locker, &Config{}, WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	require.NoError(t, svc.AutoMigrate())
	t.Cleanup(func() { _ = svc.Close() })

	return svc, database
}

// seedTransactions 写入指定日期的交易台账
func seedTransactions(t *testing.T, database db.DB, date string, txns []Transaction) {
	t.Helper()

	day, err := time.ParseInLocation(DateLayout, date, time.Local)
	require.NoError(t, err)

	for i := range txns {
		if txns[i].CreatedAt.IsZero() {
			txns[i].CreatedAt = day.Add(time.Duration(i+1) * time.Hour)
		}
		if txns[i].TxnID == "" {
			txns[i].TxnID = testkit.NewID() + "-" + date
		}
	}
	require.NoError(t, database.DB(context.Background()).Create(&txns).Error)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, nil, &Config{})
	assert.ErrorIs(t, err, ErrDBNil)

	_, database := newTestService(t)
	_, err = New(database, nil, &Config{})
	assert.ErrorIs(t, err, ErrLockerNil)

	locker, err := dlock.NewMemory(&dlock.Config{})
	require.NoError(t, err)
	_, err = New(database, locker, &Config{FeeRate: 1.5})
	assert.ErrorIs(t, err, ErrInvalidFeeRate)
}

func TestConfig_Defaults(t *testing.T) {
	cfg := &Config{}
	cfg.setDefaults()
	assert.Equal(t, DefaultFeeRate, cfg.FeeRate)
	assert.Equal(t, "0 2 * * *", cfg.CronSpec)
	assert.Equal(t, "settlement:", cfg.LockPrefix)
	assert.Equal(t, 5*time.Minute, cfg.LockTTL)
}

func TestSettleDate_FeeCalculation(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()

	// 8 笔成功共 800，2 笔失败
	txns := make([]Transaction, 0, 10)
	for i := 0; i < 8; i++ {
		txns = append(txns, Transaction{
			OrderID: fmt.Sprintf("o-%d", i+1), VendorID: "v-1",
			Amount: 100, Status: TxnStatusCompleted,
		})
	}
	txns = append(txns,
		Transaction{OrderID: "o-9", VendorID: "v-2", Amount: 120, Status: TxnStatusFailed},
		Transaction{OrderID: "o-10", VendorID: "v-2", Amount: 80, Status: TxnStatusFailed},
	)
	seedTransactions(t, database, testDate, txns)

	rec, err := svc.SettleDate(ctx, testDate)
	require.NoError(t, err)

	assert.Equal(t, testDate, rec.SettlementDate)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Equal(t, int64(10), rec.TotalTransactions)
	assert.Equal(t, int64(8), rec.SuccessfulCount)
	assert.Equal(t, int64(2), rec.FailedCount)
	assert.InDelta(t, 1000.0, rec.TotalVolume, 1e-9)

	// 仅成功交易参与结算: 800, 费率 2.5% → 手续费 20, 净额 780
	assert.InDelta(t, 800.0, rec.SettlementAmount, 1e-9)
	assert.InDelta(t, 20.0, rec.Fees, 1e-9)
	assert.InDelta(t, 780.0, rec.NetAmount, 1e-9)
	require.NotNil(t, rec.ProcessedAt)
}

func TestSettleDate_EmptyDay(t *testing.T) {
	svc, _ := newTestService(t)

	rec, err := svc.SettleDate(context.Background(), testDate)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Zero(t, rec.TotalTransactions)
	assert.Zero(t, rec.SettlementAmount)
	assert.Zero(t, rec.NetAmount)
}

func TestSettleDate_InvalidDate(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SettleDate(context.Background(), "2026/08/30")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = svc.SettleDate(context.Background(), "not-a-date")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestSettleDate_Idempotent(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()

	seedTransactions(t, database, testDate, []Transaction{
		{OrderID: "o-1", VendorID: "v-1", Amount: 100, Status: TxnStatusCompleted},
	})

	first, err := svc.SettleDate(ctx, testDate)
	require.NoError(t, err)

	// 结算后追加交易：重复结算必须跳过，不得改写已有结算单
	seedTransactions(t, database, testDate, []Transaction{
		{OrderID: "o-late", VendorID: "v-1", Amount: 999, Status: TxnStatusCompleted},
	})

	second, err := svc.SettleDate(ctx, testDate)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1), second.TotalTransactions)
	assert.InDelta(t, first.SettlementAmount, second.SettlementAmount, 1e-9)

	var count int64
	require.NoError(t, database.DB(ctx).Model(&SettlementRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSettleDate_PendingRecordSkipped(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()

	// 另一实例已产生 pending 结算单（结算尚未落定），重复触发必须跳过
	pending := &SettlementRecord{SettlementDate: testDate, Status: StatusPending}
	require.NoError(t, database.DB(ctx).Create(pending).Error)

	seedTransactions(t, database, testDate, []Transaction{
		{OrderID: "o-1", VendorID: "v-1", Amount: 100, Status: TxnStatusCompleted},
	})

	rec, err := svc.SettleDate(ctx, testDate)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, rec.ID)
	assert.Equal(t, StatusPending, rec.Status)
	assert.Zero(t, rec.TotalTransactions, "skipped run must not aggregate")
}

func TestSettleDate_PersistsPendingBeforeAggregation(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()

	// 聚合查询失败时，前置写入的结算单仍然存在并被标记为 failed
	require.NoError(t, database.DB(ctx).Exec("DROP TABLE transactions").Error)

	_, err := svc.SettleDate(ctx, testDate)
	require.Error(t, err)

	rec, err := svc.GetByDate(ctx, testDate)
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.NotEmpty(t, rec.ErrorMessage)
}

func TestSettleDate_ConcurrentSingleRun(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()

	seedTransactions(t, database, testDate, []Transaction{
		{OrderID: "o-1", VendorID: "v-1", Amount: 100, Status: TxnStatusCompleted},
	})

	const goroutines = 8
	results := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			_, err := svc.SettleDate(ctx, testDate)
			results <- err
		}()
	}

	var succeeded, conflicted int
	for i := 0; i < goroutines; i++ {
		err := <-results
		switch {
		case err == nil:
			succeeded++
		case xerrors.Is(err, ErrInProgress):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// 至少一个执行成功，其余要么拿到锁后跳过、要么收到进行中冲突
	assert.GreaterOrEqual(t, succeeded, 1)
	assert.Equal(t, goroutines, succeeded+conflicted)

	var count int64
	require.NoError(t, database.DB(ctx).Model(&SettlementRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRetryFailed(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()

	seedTransactions(t, database, testDate, []Transaction{
		{OrderID: "o-1", VendorID: "v-1", Amount: 400, Status: TxnStatusCompleted},
	})

	// 人为制造一条失败的结算单
	failed := &SettlementRecord{
		SettlementDate: testDate,
		Status:         StatusFailed,
		ErrorMessage:   "db connection reset",
	}
	require.NoError(t, database.DB(ctx).Create(failed).Error)

	rec, err := svc.RetryFailed(ctx, testDate)
	require.NoError(t, err)

	assert.Equal(t, failed.ID, rec.ID)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Empty(t, rec.ErrorMessage)
	assert.InDelta(t, 400.0, rec.SettlementAmount, 1e-9)
	assert.InDelta(t, 10.0, rec.Fees, 1e-9)
	assert.InDelta(t, 390.0, rec.NetAmount, 1e-9)

	var count int64
	require.NoError(t, database.DB(ctx).Model(&SettlementRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRetryFailed_OnlyFromFailed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RetryFailed(ctx, testDate)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, err = svc.SettleDate(ctx, testDate)
	require.NoError(t, err)

	_, err = svc.RetryFailed(ctx, testDate)
	assert.ErrorIs(t, err, ErrNotFailed)
}

func TestGetByDate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetByDate(ctx, testDate)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, err = svc.GetByDate(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = svc.SettleDate(ctx, testDate)
	require.NoError(t, err)

	rec, err := svc.GetByDate(ctx, testDate)
	require.NoError(t, err)
	assert.Equal(t, testDate, rec.SettlementDate)
}

func TestHistory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	dates := []string{"2026-08-28", "2026-08-29", "2026-08-30"}
	for _, d := range dates {
		_, err := svc.SettleDate(ctx, d)
		require.NoError(t, err)
	}

	recs, err := svc.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	// 按日期倒序
	assert.Equal(t, "2026-08-30", recs[0].SettlementDate)
	assert.Equal(t, "2026-08-28", recs[2].SettlementDate)

	recs, err = svc.History(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestStats(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()

	yesterday := time.Now().AddDate(0, 0, -1).Format(DateLayout)
	seedTransactions(t, database, yesterday, []Transaction{
		{OrderID: "o-1", VendorID: "v-1", Amount: 200, Status: TxnStatusCompleted},
		{OrderID: "o-2", VendorID: "v-1", Amount: 100, Status: TxnStatusFailed},
	})

	_, err := svc.SettleDate(ctx, yesterday)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, 7, stats.Days)
	assert.Equal(t, int64(1), stats.CompletedRuns)
	assert.Zero(t, stats.FailedRuns)
	assert.Equal(t, int64(2), stats.TotalTransactions)
	assert.InDelta(t, 300.0, stats.TotalVolume, 1e-9)
	assert.InDelta(t, 2.0, stats.AvgTransactionsPerDay, 1e-9)
}

func TestSettleDate_LockHeld(t *testing.T) {
	ctx := context.Background()

	conn := testkit.NewPersistentSQLiteConnector(t)
	database, err := db.New(conn, &db.Config{Driver: "sqlite"}, db.WithSilentMode())
	require.NoError(t, err)

	locker, err := dlock.NewMemory(&dlock.Config{})
	require.NoError(t, err)

	svc, err := New(database, locker, &Config{}, WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	require.NoError(t, svc.AutoMigrate())
	t.Cleanup(func() { _ = svc.Close() })

	// 预先占住该日期的结算锁
	ok, err := locker.TryLock(ctx, "settlement:"+testDate)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.SettleDate(ctx, testDate)
	assert.ErrorIs(t, err, ErrInProgress)

	require.NoError(t, locker.Unlock(ctx, "settlement:"+testDate))
	_, err = svc.SettleDate(ctx, testDate)
	assert.NoError(t, err)
}

func TestRound2(t *testing.T) {
	assert.InDelta(t, 20.0, round2(800*0.025), 1e-9)
	assert.InDelta(t, 0.03, round2(0.025+0.004), 1e-9)
	assert.InDelta(t, 12.34, round2(12.3449), 1e-9)
}

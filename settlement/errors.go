package settlement

import (
	"github.com/vendora-platform/vendora-core/xerrors"
)

var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("settlement: config is nil")

	// ErrDBNil 数据库依赖为空
	ErrDBNil = xerrors.New("settlement: db is nil")

	// ErrLockerNil 分布式锁依赖为空
	ErrLockerNil = xerrors.New("settlement: locker is nil")

	// ErrInvalidFeeRate 手续费率必须在 [0, 1) 区间
	ErrInvalidFeeRate = xerrors.New("settlement: fee rate must be in [0, 1)")

	// ErrInvalidDate 结算日期格式非法
	ErrInvalidDate = xerrors.New("settlement: invalid date, expected YYYY-MM-DD")

	// ErrRecordNotFound 结算单不存在
	ErrRecordNotFound = xerrors.New("settlement: record not found")

	// ErrInProgress 该日期的结算正在进行中（锁被占用）
	ErrInProgress = xerrors.New("settlement: settlement for this date is already in progress")

	// ErrNotFailed 仅失败的结算单允许重试
	ErrNotFailed = xerrors.New("settlement: only failed records can be retried")
)

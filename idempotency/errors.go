package idempotency

import "github.com/vendora-platform/vendora-core/xerrors"

// 错误定义
var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("idempotency: config is nil")

	// ErrConnectorNil 连接器为空
	ErrConnectorNil = xerrors.New("idempotency: redis connector is required")

	// ErrKeyEmpty 幂等键为空
	ErrKeyEmpty = xerrors.New("idempotency: key is empty")

	// ErrInvalidKey 幂等键不是合法的 UUID v4
	// 客户端错误，不产生任何存储副作用
	ErrInvalidKey = xerrors.New("idempotency: key must be a valid UUID v4")

	// ErrConflictInFlight 同一幂等键的请求仍在处理窗口内
	ErrConflictInFlight = xerrors.New("idempotency: request is still being processed")

	// ErrNotProcessing 记录不处于处理中状态，结果写入被拒绝
	// 发生在处理窗口被接管或记录已过期之后
	ErrNotProcessing = xerrors.New("idempotency: record is not in processing state")

	// ErrRecordNotFound 记录不存在（内部使用）
	ErrRecordNotFound = xerrors.New("idempotency: record not found")
)

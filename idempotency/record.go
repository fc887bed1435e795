package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Status 幂等记录的生命周期状态
type Status string

const (
	// StatusProcessing 已创建锁记录，业务逻辑尚在执行
	StatusProcessing Status = "processing"

	// StatusCompleted 业务逻辑执行成功，结果已缓存
	StatusCompleted Status = "completed"

	// StatusFailed 业务逻辑执行失败，错误信息已缓存
	StatusFailed Status = "failed"
)

// OperationRef 标识一次操作的业务上下文
// 存储键由幂等键与 OperationRef 共同派生，
// 同一个幂等键用于不同接口或不同用户时互不冲突
type OperationRef struct {
	// Endpoint 接口路径，例如 "/api/payments/capture"
	Endpoint string `json:"endpoint"`

	// Method HTTP 方法，例如 "POST"
	Method string `json:"method"`

	// UserID 发起请求的用户标识，可为空
	UserID string `json:"user_id,omitempty"`
}

// Record 幂等记录
//
// 记录以 JSON 形式存储在共享存储中，TTL 到期后整体消失。
// Result / ErrPayload 对组件是不透明的字节序列，
// 序列化与反序列化由调用方（或 HTTP 中间件）负责。
type Record struct {
	Key      string `json:"key"`
	Endpoint string `json:"endpoint"`
	Method   string `json:"method"`
	UserID   string `json:"user_id,omitempty"`

	Status Status `json:"status"`

	// Result 成功结果，仅 StatusCompleted 时有值
	Result []byte `json:"result,omitempty"`

	// ErrPayload 失败信息，仅 StatusFailed 时有值
	ErrPayload []byte `json:"err_payload,omitempty"`

	// CreatedAt 记录创建时间（Unix 毫秒），处理窗口的起点
	CreatedAt int64 `json:"created_at"`

	// ProcessedAt 结果落定时间（Unix 毫秒），处理中为 0
	ProcessedAt int64 `json:"processed_at,omitempty"`

	// ExpiresAt 记录过期时间（Unix 毫秒），与存储层 TTL 一致
	ExpiresAt int64 `json:"expires_at"`
}

// Age 返回记录自创建以来经过的时长
func (r *Record) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(r.CreatedAt))
}

// Finished 返回记录是否已有落定结果
func (r *Record) Finished() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// AcquireResult AcquireLock 的返回值
type AcquireResult struct {
	// IsNew true 表示本次调用创建（或接管）了记录，调用方应执行业务逻辑
	// 并随后调用 CompleteOperation / FailOperation
	IsNew bool

	// Record 存储中的记录。IsNew=false 时携带缓存的结果
	Record *Record
}

// storageKey 由幂等键和操作上下文派生存储键
// 同一个键配合不同的 method/endpoint/user 产生不同的存储条目
func storageKey(key string, ref OperationRef) string {
	h := sha256.Sum256([]byte(ref.Method + "|" + ref.Endpoint + "|" + ref.UserID))
	return key + ":" + hex.EncodeToString(h[:8])
}

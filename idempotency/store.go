package idempotency

import (
	"context"
	"time"
)

// Store 幂等性存储接口
//
// 存储后端以 JSON 形式保存 Record，并保证三个关键操作的原子性：
//  1. Create: 不存在才创建（create-if-absent）
//  2. Finish: 仅当前持有者可写结果（compare-created-at-and-update）
//  3. Takeover: 比较创建时间后整体替换（compare-and-replace）
//
// 默认提供 Redis / Memory 实现。
type Store interface {
	// Create 原子创建记录，仅当存储键不存在时成功
	// 返回 true 表示本次调用创建了记录
	Create(ctx context.Context, key string, rec *Record, ttl time.Duration) (bool, error)

	// Get 读取记录
	// 记录不存在或已过期时返回 ErrRecordNotFound
	Get(ctx context.Context, key string) (*Record, error)

	// Finish 将结果写入处理中的记录并落定状态
	// 仅当记录存在、Status 为 processing 且 CreatedAt 与 expectedCreatedAt
	// 一致时生效：CreatedAt 充当持有者凭证，已被接管的记录会拒绝
	// 原持有者迟到的写入。落定成功后记录 TTL 延长为 ttl
	Finish(ctx context.Context, key string, expectedCreatedAt int64, status Status, payload []byte, processedAt int64, ttl time.Duration) (bool, error)

	// Takeover 原子接管处理中的记录
	// 仅当现存记录的 CreatedAt 与 expectedCreatedAt 一致时整体替换为 rec，
	// 防止两个请求同时接管同一条过期记录
	Takeover(ctx context.Context, key string, expectedCreatedAt int64, rec *Record, ttl time.Duration) (bool, error)
}

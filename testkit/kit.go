// Package testkit 提供测试场景下的通用依赖构造工具。
//
// 约定:
//   - 单元测试使用内存实现（dlock.NewMemory、idempotency.NewMemoryStore、cache 内存驱动）
//   - 集成测试使用 testcontainers 启动真实依赖，运行 go test 前需要 Docker 环境
//   - 所有资源的生命周期由 t.Cleanup 管理
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vendora-platform/vendora-core/clog"
	"github.com/vendora-platform/vendora-core/metrics"
)

// Kit 包含通用的测试依赖
type Kit struct {
	Ctx    context.Context
	Logger clog.Logger
	Meter  metrics.Meter
}

// NewKit 返回一个包含默认依赖的测试工具包
func NewKit(t *testing.T) *Kit {
	t.Helper()
	return &Kit{
		Ctx:    context.Background(),
		Logger: NewLogger(),
		Meter:  metrics.NewNoop(),
	}
}

// NewLogger 返回一个用于测试的 logger
// 控制台格式、warn 级别，保持测试输出安静
func NewLogger() clog.Logger {
	logger, err := clog.New(&clog.Config{
		Level:  "warn",
		Format: "console",
		Output: "stderr",
	})
	if err != nil {
		return clog.NewNoop()
	}
	return logger
}

// NewContext 返回一个带有超时的测试上下文
func NewContext(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), timeout)
}

// NewID 返回一个唯一的测试 ID (UUID v4 前 8 位)
// 用于生成唯一的 Key 或表名后缀，避免测试间数据冲突
func NewID() string {
	return uuid.New().String()[0:8]
}

// NewIdemKey 返回一个完整的 UUID v4 字符串
// 幂等键校验要求完整的 UUID v4 格式
func NewIdemKey() string {
	return uuid.New().String()
}

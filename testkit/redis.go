package testkit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/vendora-platform/vendora-core/connector"
)

// RedisAddr 返回外部 Redis 地址
// 默认 localhost:6379，可通过 VENDORA_TEST_REDIS_ADDR 环境变量覆盖
func RedisAddr() string {
	if addr := os.Getenv("VENDORA_TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// NewRedisConfig 返回 Redis 测试配置（外部实例）
func NewRedisConfig() *connector.RedisConfig {
	return &connector.RedisConfig{
		Name:         "test-redis",
		Addr:         RedisAddr(),
		DB:           1, // 使用 DB 1 避免与默认的 DB 0 冲突
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewRedisContainerConfig 使用 testcontainers 启动 Redis 容器并返回配置
// 生命周期由 t.Cleanup 管理
func NewRedisContainerConfig(t *testing.T) *connector.RedisConfig {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start redis container")

	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	cfg := NewRedisConfig()
	cfg.Addr = endpoint
	cfg.DB = 0
	return cfg
}

// NewRedisConnector 获取 Redis 连接器
// 优先连接外部实例（快），连不上时回退到 testcontainers 容器
func NewRedisConnector(t *testing.T) connector.RedisConnector {
	t.Helper()

	conn, err := connector.NewRedis(NewRedisConfig(), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create redis connector")

	if err := conn.Connect(context.Background()); err != nil {
		_ = conn.Close()
		conn, err = connector.NewRedis(NewRedisContainerConfig(t), connector.WithLogger(NewLogger()))
		require.NoError(t, err, "failed to create redis connector")
		require.NoError(t, conn.Connect(context.Background()), "failed to connect to redis")
	}

	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// NewRedisClient 获取原生 Redis 客户端
func NewRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	return NewRedisConnector(t).GetClient()
}

// FlushRedis 清空 Redis 测试数据库（慎用！）
func FlushRedis(t *testing.T, client *redis.Client) {
	t.Helper()
	require.NoError(t, client.FlushDB(context.Background()).Err(), "failed to flush redis")
}

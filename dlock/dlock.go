// Package dlock 提供基于共享存储的分布式锁，用于跨实例的互斥协调。
//
// 平台内的两个核心用途：
//   - 缓存回源防击穿：未命中时先 TryLock，只有持有者回源计算
//   - 结算生成防重复：按日期加锁，避免多实例同时生成同一天的结算单
//
// ## 语义
//
//   - TryLock 非阻塞：锁被占用返回 (false, nil)，竞争不是错误
//   - Lock 阻塞重试，直到获取成功或上下文取消
//   - Unlock 幂等：只有持有者的 token 匹配才会删除存储条目；
//     锁已过期或已被他人持有时返回 nil，不视为错误
//   - 没有续约看门狗：存储层 TTL 是唯一的崩溃恢复机制，
//     持有者崩溃后锁在 TTL 到期时自动释放
//
// ## 基本使用
//
//	locker, _ := dlock.NewRedis(redisConn, &dlock.Config{
//	    Prefix:     "lock:",
//	    DefaultTTL: 10 * time.Second,
//	}, dlock.WithLogger(logger))
//	defer locker.Close()
//
//	ok, err := locker.TryLock(ctx, "settlement:2026-08-30", dlock.WithTTL(30*time.Second))
//	if err != nil || !ok {
//	    return // 其他实例正在处理
//	}
//	defer locker.Unlock(ctx, "settlement:2026-08-30")
package dlock

import (
	"context"
)

// Locker 定义了分布式锁的核心行为
type Locker interface {
	// Lock 阻塞式加锁
	// 成功返回 nil；上下文取消时返回 context.Canceled 或 context.DeadlineExceeded
	//
	// opts 支持的选项:
	//   - WithTTL(duration): 设置锁的超时时间
	Lock(ctx context.Context, key string, opts ...LockOption) error

	// TryLock 非阻塞式尝试加锁
	// 成功获取锁返回 true, nil
	// 锁已被占用返回 false, nil
	// 发生错误返回 false, err
	TryLock(ctx context.Context, key string, opts ...LockOption) (bool, error)

	// Unlock 释放锁
	// 只有锁的持有者才能删除存储条目；锁已过期时返回 nil
	Unlock(ctx context.Context, key string) error

	// Close 关闭 Locker，释放本地资源
	Close() error
}

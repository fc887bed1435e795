package dlock

// Metrics 指标常量定义
const (
	// MetricLockAcquired 锁获取成功次数 (Counter)
	MetricLockAcquired = "dlock_lock_acquired_total"

	// MetricLockContended 锁竞争失败次数 (Counter)
	MetricLockContended = "dlock_lock_contended_total"

	// MetricLockReleased 锁释放次数 (Counter)
	MetricLockReleased = "dlock_lock_released_total"

	// MetricLockExpiredOnUnlock 释放时发现锁已过期的次数 (Counter)
	MetricLockExpiredOnUnlock = "dlock_lock_expired_on_unlock_total"

	// LabelBackend 后端类型标签
	LabelBackend = "backend"
)

package cache

// Metrics 指标常量定义
const (
	// MetricHitsTotal 缓存命中数 (Counter)
	MetricHitsTotal = "cache_hits_total"

	// MetricMissesTotal 缓存未命中数 (Counter)
	MetricMissesTotal = "cache_misses_total"

	// MetricComputesTotal 回源计算数 (Counter)
	MetricComputesTotal = "cache_computes_total"

	// MetricLockContentionsTotal 回源锁竞争数 (Counter)
	MetricLockContentionsTotal = "cache_lock_contentions_total"

	// MetricDegradedComputesTotal 降级回源数 (Counter)
	// 等待持有者超时后自行计算的次数
	MetricDegradedComputesTotal = "cache_degraded_computes_total"

	// MetricHitRatio 聚合命中率 (Gauge)，由清扫协程定期上报
	MetricHitRatio = "cache_hit_ratio"

	// LabelMode 缓存模式标签
	LabelMode = "mode"
)

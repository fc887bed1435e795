package idempotency

// Metrics 指标常量定义
const (
	// MetricAcquisitionsTotal 锁获取尝试总数 (Counter)
	MetricAcquisitionsTotal = "idempotency_acquisitions_total"

	// MetricReplaysTotal 缓存结果重放数 (Counter)
	MetricReplaysTotal = "idempotency_replays_total"

	// MetricConflictsTotal 处理窗口内的并发冲突数 (Counter)
	MetricConflictsTotal = "idempotency_conflicts_total"

	// MetricTakeoversTotal 过期记录接管数 (Counter)
	MetricTakeoversTotal = "idempotency_takeovers_total"

	// MetricInvalidKeysTotal 非法幂等键数 (Counter)
	MetricInvalidKeysTotal = "idempotency_invalid_keys_total"

	// LabelOutcome 结果标签 (new/replay/conflict/takeover)
	LabelOutcome = "outcome"

	// LabelEndpoint 接口路径标签
	LabelEndpoint = "endpoint"
)

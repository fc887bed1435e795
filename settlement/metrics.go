package settlement

// Metrics 指标常量定义
const (
	// MetricSettlementRuns 结算执行次数 (Counter)，按结果打标
	MetricSettlementRuns = "settlement_runs_total"

	// MetricSettlementSkipped 因结算单已存在而跳过的次数 (Counter)
	MetricSettlementSkipped = "settlement_skipped_total"

	// MetricSettlementVolume 已结算交易总金额 (Counter)
	MetricSettlementVolume = "settlement_volume_total"

	// LabelResult 结算结果标签: completed / failed
	LabelResult = "result"

	// LabelTrigger 触发方式标签: manual / cron / retry
	LabelTrigger = "trigger"
)

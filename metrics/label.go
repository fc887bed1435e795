package metrics

import "strconv"

const (
	// 常用标签键
	LabelComponent = "component"
	LabelOperation = "operation"
	LabelMethod    = "method"
	LabelRoute     = "route"
	LabelOutcome   = "outcome"
	LabelDriver    = "driver"
)

const (
	// 常用结果值
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Label 指标标签，为指标添加维度信息。
// 注意避免高基数标签值（如幂等键、请求 ID）。
type Label struct {
	Key   string
	Value string
}

// L 便捷构造函数，创建一个 Label 实例
//
//	counter.Inc(ctx, metrics.L("outcome", "success"))
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}

// HTTPStatusClass 返回 HTTP 状态类标签值：1xx/2xx/3xx/4xx/5xx/unknown
func HTTPStatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// HTTPOutcome 将 HTTP 状态码映射为 success/error
func HTTPOutcome(status int) string {
	if status >= 200 && status < 400 {
		return OutcomeSuccess
	}
	return OutcomeError
}

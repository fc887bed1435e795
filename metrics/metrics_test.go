package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDisabledReturnsNoop(t *testing.T) {
	meter, err := New(&Config{Enabled: false})
	require.NoError(t, err)

	_, ok := meter.(*noopMeter)
	assert.True(t, ok)

	counter, err := meter.Counter("ops_total", "total ops")
	require.NoError(t, err)
	counter.Inc(context.Background())
	assert.NoError(t, meter.Shutdown(context.Background()))
}

func TestNewNilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestEnabledMeterInstruments(t *testing.T) {
	// 不配置端口，避免启动 HTTP 服务器
	meter, err := New(&Config{Enabled: true, ServiceName: "test"})
	require.NoError(t, err)
	defer meter.Shutdown(context.Background())

	ctx := context.Background()

	counter, err := meter.Counter("settlement_runs_total", "settlement runs")
	require.NoError(t, err)
	counter.Inc(ctx, L("outcome", "success"))
	counter.Add(ctx, 3, L("outcome", "error"))

	gauge, err := meter.Gauge("active_locks", "active locks")
	require.NoError(t, err)
	gauge.Set(ctx, 2)
	gauge.Inc(ctx)
	gauge.Dec(ctx)

	histogram, err := meter.Histogram("compute_duration_seconds", "compute duration", WithUnit("s"))
	require.NoError(t, err)
	histogram.Record(ctx, 0.042, L("driver", "redis"))
}

func TestHTTPStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", HTTPStatusClass(201))
	assert.Equal(t, "4xx", HTTPStatusClass(409))
	assert.Equal(t, "5xx", HTTPStatusClass(503))
	assert.Equal(t, "unknown", HTTPStatusClass(42))
}

func TestHTTPOutcome(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, HTTPOutcome(200))
	assert.Equal(t, OutcomeSuccess, HTTPOutcome(302))
	assert.Equal(t, OutcomeError, HTTPOutcome(409))
	assert.Equal(t, OutcomeError, HTTPOutcome(500))
}

func TestLabelKey(t *testing.T) {
	assert.Equal(t, "", labelKey(nil))
	assert.Equal(t, "a=1|b=2", labelKey([]Label{L("a", "1"), L("b", "2")}))
}

//go:build integration

package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendora-platform/vendora-core/testkit"
)

func newRedisCoordinator(t *testing.T, cfg *Config) Idempotency {
	t.Helper()
	conn := testkit.NewRedisConnector(t)
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Driver = DriverRedis
	cfg.Prefix = "test:idem:" + testkit.NewID() + ":"

	idem, err := New(cfg, WithRedisConnector(conn), WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	return idem
}

func TestRedisCoordinator_ReplayRoundTrip(t *testing.T) {
	idem := newRedisCoordinator(t, nil)
	ctx := context.Background()
	key := uuid.New().String()
	ref := OperationRef{Endpoint: "/api/orders", Method: "POST", UserID: "user-1"}

	acquired, err := idem.AcquireLock(ctx, key, ref)
	require.NoError(t, err)
	require.True(t, acquired.IsNew)

	result := []byte(`{"order_id":"ord-2002"}`)
	require.NoError(t, idem.CompleteOperation(ctx, acquired.Record, result))

	replayed, err := idem.AcquireLock(ctx, key, ref)
	require.NoError(t, err)
	assert.False(t, replayed.IsNew)
	assert.Equal(t, StatusCompleted, replayed.Record.Status)
	assert.Equal(t, result, replayed.Record.Result)
}

func TestRedisCoordinator_ConflictAndTakeover(t *testing.T) {
	idem := newRedisCoordinator(t, &Config{ProcessingWindow: 300 * time.Millisecond})
	ctx := context.Background()
	key := uuid.New().String()
	ref := OperationRef{Endpoint: "/api/wallet/transfer", Method: "POST"}

	acquired, err := idem.AcquireLock(ctx, key, ref)
	require.NoError(t, err)
	require.True(t, acquired.IsNew)

	_, err = idem.AcquireLock(ctx, key, ref)
	assert.ErrorIs(t, err, ErrConflictInFlight)

	time.Sleep(400 * time.Millisecond)

	taken, err := idem.AcquireLock(ctx, key, ref)
	require.NoError(t, err)
	assert.True(t, taken.IsNew, "stale processing record should be taken over")
}

func TestRedisCoordinator_LateFinishRejectedAfterTakeoverCompletes(t *testing.T) {
	idem := newRedisCoordinator(t, &Config{ProcessingWindow: 200 * time.Millisecond})
	ctx := context.Background()
	key := uuid.New().String()
	ref := OperationRef{Endpoint: "/api/payments/capture", Method: "POST"}

	stale, err := idem.AcquireLock(ctx, key, ref)
	require.NoError(t, err)

	time.Sleep(300 * time.Millisecond)

	taken, err := idem.AcquireLock(ctx, key, ref)
	require.NoError(t, err)
	require.True(t, taken.IsNew)
	require.NoError(t, idem.CompleteOperation(ctx, taken.Record, []byte("winner")))

	// 原持有者迟到的写入被 created_at 比对拒绝
	err = idem.CompleteOperation(ctx, stale.Record, []byte("loser"))
	assert.ErrorIs(t, err, ErrNotProcessing)

	replayed, err := idem.AcquireLock(ctx, key, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("winner"), replayed.Record.Result)
}

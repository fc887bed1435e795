package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendora-platform/vendora-core/connector"
	"gorm.io/gorm"
)

type testOrder struct {
	ID     uint    `gorm:"primaryKey"`
	Vendor string  `gorm:"size:64;index"`
	Amount float64 `gorm:"not null"`
}

func newTestDB(t *testing.T) DB {
	t.Helper()

	conn, err := connector.NewSQLite(&connector.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.Connect(context.Background()))

	database, err := New(conn, &Config{Driver: "sqlite"}, WithSilentMode())
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(&testOrder{}))
	return database
}

func TestNew_NilConnector(t *testing.T) {
	_, err := New(nil, &Config{Driver: "sqlite"})
	assert.ErrorIs(t, err, ErrConnectorRequired)
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{Driver: "postgres"}
	cfg.setDefaults()
	assert.Error(t, cfg.validate())

	cfg = &Config{}
	cfg.setDefaults()
	assert.Equal(t, "mysql", cfg.Driver)
	assert.NoError(t, cfg.validate())
}

func TestDatabase_CRUD(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	order := &testOrder{Vendor: "vendor-1", Amount: 99.5}
	require.NoError(t, database.DB(ctx).Create(order).Error)
	assert.NotZero(t, order.ID)

	var got testOrder
	require.NoError(t, database.DB(ctx).First(&got, order.ID).Error)
	assert.Equal(t, "vendor-1", got.Vendor)
	assert.Equal(t, 99.5, got.Amount)
}

func TestDatabase_TransactionRollback(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	err := database.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.Create(&testOrder{Vendor: "vendor-2", Amount: 10}).Error; err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, database.DB(ctx).Model(&testOrder{}).Count(&count).Error)
	assert.Zero(t, count, "rollback should discard the insert")
}

func TestDatabase_TransactionCommit(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	err := database.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return tx.Create(&testOrder{Vendor: "vendor-3", Amount: 42}).Error
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, database.DB(ctx).Model(&testOrder{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

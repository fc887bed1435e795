// Package db 提供基于 GORM 的数据库组件，承载结算台账等关系型数据。
//
// db 组件在数据库连接器的基础上提供了：
// - GORM ORM 功能封装
// - 事务管理支持
// - SQL 日志桥接（慢查询以 Warn 级别记录）
// - 与基础组件（日志、指标、错误）的集成
//
// ## 基本使用
//
//	mysqlConn, _ := connector.NewMySQL(&cfg.MySQL, connector.WithLogger(logger))
//	defer mysqlConn.Close()
//	mysqlConn.Connect(ctx)
//
//	database, _ := db.New(mysqlConn, &db.Config{Driver: "mysql"}, db.WithLogger(logger))
//
//	// 使用 GORM 进行数据库操作
//	gormDB := database.DB(ctx)
//	var records []SettlementRecord
//	gormDB.Where("status = ?", "pending").Find(&records)
//
//	// 事务操作
//	err := database.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
//	    return tx.Create(&record).Error
//	})
//
// ## 设计原则
//
// - **借用模型**：db 组件借用连接器的连接，不负责连接的生命周期
// - **显式依赖**：通过构造函数显式注入连接器和选项
// - **简单设计**：使用 Go 原生模式，避免复杂的抽象
package db

import (
	"context"

	"github.com/vendora-platform/vendora-core/clog"
	"github.com/vendora-platform/vendora-core/connector"
	"github.com/vendora-platform/vendora-core/metrics"
	"github.com/vendora-platform/vendora-core/xerrors"
	"gorm.io/gorm"
)

// DB 定义了数据库组件的核心能力
type DB interface {
	// DB 获取底层的 *gorm.DB 实例
	// 绝大多数业务查询直接使用此方法返回的对象
	DB(ctx context.Context) *gorm.DB

	// Transaction 执行事务操作
	// fn 中的 tx 对象仅在当前事务范围内有效
	Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error

	// AutoMigrate 执行表结构迁移
	AutoMigrate(models ...any) error

	// Close 关闭组件
	Close() error
}

// database 是 DB 接口的实现
type database struct {
	client *gorm.DB
	logger clog.Logger
	meter  metrics.Meter
}

// New 创建数据库组件实例
//
// 参数:
//   - conn: 数据库连接器（MySQL 或 SQLite），需已 Connect
//   - cfg: DB 配置
//   - opts: 可选参数 (Logger, Meter, SilentMode)
func New(conn connector.TypedConnector[*gorm.DB], cfg *Config, opts ...Option) (DB, error) {
	if conn == nil {
		return nil, ErrConnectorRequired
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrap(err, "invalid db config")
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	if opt.logger == nil {
		opt.logger = clog.Default().WithNamespace("db")
	}
	if opt.meter == nil {
		opt.meter = metrics.NewNoop()
	}

	gormDB := conn.GetClient()
	if gormDB == nil {
		return nil, xerrors.Wrapf(ErrConnectorRequired, "connector %s has no client (not connected?)", conn.Name())
	}

	session := gormDB.Session(&gorm.Session{
		Logger: newGormLogger(opt.logger, cfg.SlowThreshold, opt.silentMode),
	})

	return &database{
		client: session,
		logger: opt.logger,
		meter:  opt.meter,
	}, nil
}

// DB 获取底层的 *gorm.DB 实例
func (d *database) DB(ctx context.Context) *gorm.DB {
	return d.client.WithContext(ctx)
}

// Transaction 执行事务操作
func (d *database) Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error {
	return d.client.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, tx)
	})
}

// AutoMigrate 执行表结构迁移
func (d *database) AutoMigrate(models ...any) error {
	if err := d.client.AutoMigrate(models...); err != nil {
		return xerrors.Wrap(err, "auto migrate failed")
	}
	return nil
}

// Close 关闭组件
func (d *database) Close() error {
	// GORM 的连接由连接器管理，这里不需要额外关闭
	return nil
}

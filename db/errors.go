package db

import "github.com/vendora-platform/vendora-core/xerrors"

var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = xerrors.New("db: invalid config")

	// ErrConnectorRequired 数据库连接器未提供
	ErrConnectorRequired = xerrors.New("db: connector is required")
)

package cache

import "github.com/vendora-platform/vendora-core/xerrors"

var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("cache: config is nil")

	// ErrConnectorNil 连接器为空
	ErrConnectorNil = xerrors.New("cache: redis connector is required")

	// ErrCacheMiss 缓存未命中
	ErrCacheMiss = xerrors.New("cache: miss")

	// ErrKeyEmpty 键为空
	ErrKeyEmpty = xerrors.New("cache: key is empty")

	// ErrPrefixOverlap 缓存前缀与锁前缀重叠
	// 两个命名空间必须不相交，批量删除一侧不能波及另一侧
	ErrPrefixOverlap = xerrors.New("cache: data prefix overlaps lock prefix")
)

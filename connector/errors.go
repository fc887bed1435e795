package connector

import "github.com/vendora-platform/vendora-core/xerrors"

// 连接器专用哨兵错误
var (
	ErrConnection  = xerrors.New("connector: connection failed")
	ErrConfig      = xerrors.New("connector: invalid config")
	ErrClientNil   = xerrors.New("connector: client is nil")
	ErrHealthCheck = xerrors.New("connector: health check failed")
)

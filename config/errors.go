package config

import "github.com/vendora-platform/vendora-core/xerrors"

var (
	// ErrWatchKeyEmpty 监听的 key 为空
	ErrWatchKeyEmpty = xerrors.New("config: watch key is empty")
)

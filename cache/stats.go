package cache

import "sync/atomic"

// Stats 聚合缓存统计，仅供观测使用
type Stats struct {
	// Hits 命中数
	Hits uint64 `json:"hits"`

	// Misses 未命中数
	Misses uint64 `json:"misses"`

	// Computes 回源计算数
	Computes uint64 `json:"computes"`

	// LockContentions 回源锁竞争数
	LockContentions uint64 `json:"lock_contentions"`

	// DegradedComputes 等待超时后的降级回源数
	DegradedComputes uint64 `json:"degraded_computes"`
}

// HitRatio 命中率，无流量时返回 0
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// statsCounters 进程内统计计数器
type statsCounters struct {
	hits             atomic.Uint64
	misses           atomic.Uint64
	computes         atomic.Uint64
	lockContentions  atomic.Uint64
	degradedComputes atomic.Uint64
}

func (s *statsCounters) snapshot() Stats {
	return Stats{
		Hits:             s.hits.Load(),
		Misses:           s.misses.Load(),
		Computes:         s.computes.Load(),
		LockContentions:  s.lockContentions.Load(),
		DegradedComputes: s.degradedComputes.Load(),
	}
}

package common

import (
	"sync"
)

// Stats is a cheap counter sink. The buffer pool feeds it with hit/miss/eviction
// counts so tests and the demo can inspect cache behaviour without a metrics stack.
type Stats struct {
	avg    map[string]float64
	counts map[string]int64
	mu     sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		avg:    map[string]float64{},
		counts: map[string]int64{},
	}
}

func (s *Stats) Count(key string) {
	s.mu.Lock()
	s.counts[key]++
	s.mu.Unlock()
}

func (s *Stats) Avg(key string, val float64) {
	s.mu.Lock()
	s.counts[key]++
	s.avg[key] += val
	s.mu.Unlock()
}

func (s *Stats) Get(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key]
}

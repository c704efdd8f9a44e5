package application

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/CoPhuocVinh/demo-kafka/internal/domain"
)

// StatisticsSnapshot is a point-in-time view of the production state.
type StatisticsSnapshot struct {
	TotalMessagesProduced int64 `json:"totalMessagesProduced"`
	IsProducing           bool  `json:"isProducing"`
	PartitionWeights      []int `json:"partitionWeights"`
	IntervalMs            int64 `json:"intervalMs"`
}

// Statistics aggregates production counters for observability. Values are never reset.
type Statistics struct {
	produced   atomic.Int64
	running    atomic.Bool
	intervalMs atomic.Int64

	mu      sync.RWMutex
	weights domain.WeightVector
}

// NewStatistics creates an aggregator seeded with the initial weights.
func NewStatistics(weights domain.WeightVector) *Statistics {
	return &Statistics{weights: weights.Clone()}
}

func (s *Statistics) incProduced() int64 {
	return s.produced.Add(1)
}

func (s *Statistics) setRunning(running bool) {
	s.running.Store(running)
}

func (s *Statistics) setInterval(d time.Duration) {
	s.intervalMs.Store(d.Milliseconds())
}

func (s *Statistics) setWeights(w domain.WeightVector) {
	s.mu.Lock()
	s.weights = w.Clone()
	s.mu.Unlock()
}

// Snapshot returns the current statistics.
func (s *Statistics) Snapshot() StatisticsSnapshot {
	s.mu.RLock()
	weights := s.weights.Clone()
	s.mu.RUnlock()
	return StatisticsSnapshot{
		TotalMessagesProduced: s.produced.Load(),
		IsProducing:           s.running.Load(),
		PartitionWeights:      weights,
		IntervalMs:            s.intervalMs.Load(),
	}
}

package application

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/CoPhuocVinh/demo-kafka/internal/domain"
)

// PartitionRouter picks a partition for each message according to a weight vector.
type PartitionRouter struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPartitionRouter creates a router drawing from src. A nil src uses a time-seeded source.
func NewPartitionRouter(src rand.Source) *PartitionRouter {
	if src == nil {
		src = rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)
	}
	return &PartitionRouter{rng: rand.New(src)}
}

// Route returns the target partition for weights. A zero total always routes to partition 0.
func (r *PartitionRouter) Route(weights domain.WeightVector) int32 {
	total := weights.Total()
	if total <= 0 {
		return 0
	}
	r.mu.Lock()
	n := r.rng.IntN(total)
	r.mu.Unlock()
	return pick(weights, n)
}

// pick scans weights in index order, subtracting each from n, and returns the
// first index where the remainder goes negative. n must be in [0, total).
func pick(weights domain.WeightVector, n int) int32 {
	for i, w := range weights {
		n -= w
		if n < 0 {
			return int32(i)
		}
	}
	return 0
}

package kafka

import (
	"context"

	"github.com/twmb/franz-go/pkg/kgo"
)

type routedKey struct{}

// withRoute marks r as carrying an explicit partition chosen by the caller.
func withRoute(ctx context.Context, r *kgo.Record, partition int32) {
	r.Partition = partition
	r.Context = context.WithValue(ctx, routedKey{}, true)
}

func routed(r *kgo.Record) bool {
	if r.Context == nil {
		return false
	}
	v, _ := r.Context.Value(routedKey{}).(bool)
	return v
}

// routedPartitioner honors the partition of records marked by withRoute and
// hands every other record to a sticky key partitioner.
type routedPartitioner struct {
	fallback kgo.Partitioner
}

func newRoutedPartitioner() kgo.Partitioner {
	return routedPartitioner{fallback: kgo.StickyKeyPartitioner(nil)}
}

func (p routedPartitioner) ForTopic(topic string) kgo.TopicPartitioner {
	return &routedTopicPartitioner{fallback: p.fallback.ForTopic(topic)}
}

type routedTopicPartitioner struct {
	fallback kgo.TopicPartitioner
}

func (p *routedTopicPartitioner) RequiresConsistency(r *kgo.Record) bool {
	return routed(r) || p.fallback.RequiresConsistency(r)
}

// Partition returns the routed partition when it exists in the topic.
func (p *routedTopicPartitioner) Partition(r *kgo.Record, n int) int {
	if routed(r) && r.Partition >= 0 && int(r.Partition) < n {
		return int(r.Partition)
	}
	return p.fallback.Partition(r, n)
}

// OnNewBatch lets the sticky fallback rotate keyless records across partitions.
func (p *routedTopicPartitioner) OnNewBatch() {
	if nb, ok := p.fallback.(kgo.TopicPartitionerOnNewBatch); ok {
		nb.OnNewBatch()
	}
}

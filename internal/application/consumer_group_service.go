package application

import (
	"context"

	"github.com/CoPhuocVinh/demo-kafka/internal/domain"
	"github.com/CoPhuocVinh/demo-kafka/internal/utils"
)

// ConsumerGroupService reports partition watermarks and lag for the pool's group.
type ConsumerGroupService struct {
	inspector domain.LogInspector
	metrics   domain.MetricsSink
	topic     string
	group     string
}

// NewConsumerGroupService creates a service inspecting topic on behalf of group.
func NewConsumerGroupService(inspector domain.LogInspector, metrics domain.MetricsSink, topic, group string) *ConsumerGroupService {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &ConsumerGroupService{
		inspector: inspector,
		metrics:   metrics,
		topic:     topic,
		group:     group,
	}
}

// PartitionStatus returns watermarks and lag per partition, publishing the lag
// to the metrics sink as a side effect.
func (s *ConsumerGroupService) PartitionStatus(ctx context.Context) ([]domain.PartitionOffsets, error) {
	offsets, err := s.inspector.PartitionOffsets(ctx, s.topic, s.group)
	if err != nil {
		utils.Logger.Error("list partition offsets failed", "topic", s.topic, "group", s.group, "err", err)
		return nil, err
	}
	for _, o := range offsets {
		s.metrics.SetConsumerLag(s.topic, o.Partition, s.group, o.Lag)
	}
	return offsets, nil
}

package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"

	"github.com/CoPhuocVinh/demo-kafka/internal/domain"
	"github.com/CoPhuocVinh/demo-kafka/internal/utils"
)

// Admin wraps the kadm client for topic provisioning and offset inspection.
type Admin struct {
	client            *kadm.Client
	replicationFactor int16
}

// NewAdmin creates a new Admin. Non-positive replication factors use the broker default.
func NewAdmin(client *kadm.Client, replicationFactor int16) *Admin {
	if replicationFactor <= 0 {
		replicationFactor = -1
	}
	return &Admin{client: client, replicationFactor: replicationFactor}
}

// EnsureTopic creates topic; an existing topic is not an error.
func (a *Admin) EnsureTopic(ctx context.Context, topic string, partitions int32) error {
	cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := a.client.CreateTopic(cctx, partitions, a.replicationFactor, nil, topic)
	if err != nil {
		return err
	}
	if resp.Err != nil {
		if errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			utils.Logger.Debug("topic already exists", "topic", topic)
			return nil
		}
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	utils.Logger.Info("created topic", "topic", topic, "partitions", partitions)
	return nil
}

// PartitionOffsets lists the watermarks of topic and the lag of group on each
// partition. Partitions the group never committed report Committed -1.
func (a *Admin) PartitionOffsets(ctx context.Context, topic, group string) ([]domain.PartitionOffsets, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	starts, err := a.client.ListStartOffsets(cctx, topic)
	if err != nil {
		return nil, err
	}
	ends, err := a.client.ListEndOffsets(cctx, topic)
	if err != nil {
		return nil, err
	}

	byPartition := make(map[int32]*domain.PartitionOffsets)
	for p, o := range ends[topic] {
		if o.Err != nil {
			return nil, fmt.Errorf("end offset %s/%d: %w", topic, p, o.Err)
		}
		byPartition[p] = &domain.PartitionOffsets{Partition: p, High: o.Offset, Committed: -1}
	}
	for p, o := range starts[topic] {
		if po, ok := byPartition[p]; ok && o.Err == nil {
			po.Low = o.Offset
		}
	}

	// watermarks are still worth reporting when the group cannot be described
	var committed map[int32]kadm.GroupMemberLag
	lags, err := a.client.Lag(cctx, group)
	if err != nil {
		utils.Logger.Warn("group lag unavailable", "group", group, "err", err)
	} else if gl, ok := lags[group]; ok {
		committed = gl.Lag[topic]
	}

	out := make([]domain.PartitionOffsets, 0, len(byPartition))
	for p, po := range byPartition {
		if ml, ok := committed[p]; ok && ml.Err == nil && ml.Commit.At >= 0 {
			po.Committed = ml.Commit.At
			po.Lag = max(po.High-ml.Commit.At, 0)
		} else {
			po.Lag = po.High - po.Low
		}
		out = append(out, *po)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Partition < out[j].Partition })
	return out, nil
}

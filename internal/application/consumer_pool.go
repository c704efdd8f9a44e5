package application

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CoPhuocVinh/demo-kafka/internal/domain"
	"github.com/CoPhuocVinh/demo-kafka/internal/utils"
)

// MessageChannel is the broadcast channel consumed messages are published on.
const MessageChannel = "kafka-message"

// ConsumerPoolConfig configures a ConsumerPool.
type ConsumerPoolConfig struct {
	Topic         string
	GroupID       string
	Consumers     int
	Partitions    int
	FromBeginning bool
}

// ConsumerHandle owns the live subscription of one pool instance.
type ConsumerHandle struct {
	Name       string
	GroupID    string
	InstanceID int

	sub      domain.Subscription
	consumed atomic.Int64
}

// Consumed returns the number of messages this instance has handled.
func (h *ConsumerHandle) Consumed() int64 {
	return h.consumed.Load()
}

// ConsumerInfo describes a pool member for observers.
type ConsumerInfo struct {
	Name          string `json:"name"`
	InstanceID    int    `json:"instanceId"`
	GroupID       string `json:"groupId"`
	HomePartition int32  `json:"homePartition"`
	Consumed      int64  `json:"consumed"`
}

// SeekTarget is the position a consumer cursor is moved to.
type SeekTarget struct {
	Topic     string `json:"topic"`
	Partition int32  `json:"partition"`
	Offset    int64  `json:"offset"`
}

// ConsumedMessage is the broadcast payload for every message a pool member handles.
type ConsumedMessage struct {
	Type          string            `json:"type"`
	ConsumerGroup string            `json:"consumerGroup"`
	ConsumerID    string            `json:"consumerId"`
	Topic         string            `json:"topic"`
	Partition     int32             `json:"partition"`
	Offset        string            `json:"offset"`
	Key           string            `json:"key,omitempty"`
	Value         string            `json:"value"`
	Timestamp     string            `json:"timestamp"`
	Headers       map[string]string `json:"headers,omitempty"`
}

// ConsumerPool runs a fixed set of named consumers sharing one group.
type ConsumerPool struct {
	log         domain.EventLog
	broadcaster domain.Broadcaster
	metrics     domain.MetricsSink
	directory   *CursorDirectory
	cfg         ConsumerPoolConfig

	mu      sync.Mutex
	handles []*ConsumerHandle
}

// NewConsumerPool creates a pool; no subscription is opened until Start.
func NewConsumerPool(log domain.EventLog, broadcaster domain.Broadcaster, metrics domain.MetricsSink, cfg ConsumerPoolConfig) *ConsumerPool {
	if cfg.Consumers <= 0 {
		cfg.Consumers = 3
	}
	if cfg.Partitions <= 0 {
		cfg.Partitions = 3
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &ConsumerPool{
		log:         log,
		broadcaster: broadcaster,
		metrics:     metrics,
		directory:   NewCursorDirectory(),
		cfg:         cfg,
	}
}

// Start subscribes every instance. If any subscription fails the ones already
// opened are closed and the error is returned.
func (p *ConsumerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.handles) > 0 {
		return ErrPoolStarted
	}

	for i := 1; i <= p.cfg.Consumers; i++ {
		h := &ConsumerHandle{
			Name:       ConsumerName(i),
			GroupID:    p.cfg.GroupID,
			InstanceID: i,
		}
		sub, err := p.log.Subscribe(ctx, domain.SubscriptionConfig{
			Topic:         p.cfg.Topic,
			GroupID:       p.cfg.GroupID,
			ClientID:      fmt.Sprintf("demo-consumer-%d", i),
			FromBeginning: p.cfg.FromBeginning,
		}, p.handlerFor(h))
		if err != nil {
			p.closeLocked()
			return fmt.Errorf("start %s: %w", h.Name, err)
		}
		h.sub = sub
		p.handles = append(p.handles, h)
		p.directory.Register(h)
		utils.Logger.Info("consumer joined group", "consumer", h.Name, "group", p.cfg.GroupID, "topic", p.cfg.Topic)
	}

	utils.Logger.Info("all consumers started", "count", len(p.handles))
	return nil
}

func (p *ConsumerPool) handlerFor(h *ConsumerHandle) domain.MessageHandler {
	return func(_ context.Context, msg domain.Message) {
		start := time.Now()
		utils.Logger.Debug("processing message", "consumer", h.Name, "partition", msg.Partition, "offset", msg.Offset)

		h.consumed.Add(1)
		p.metrics.IncConsumed(msg.Topic, h.GroupID)

		p.broadcaster.Publish(MessageChannel, ConsumedMessage{
			Type:          MessageChannel,
			ConsumerGroup: h.GroupID,
			ConsumerID:    h.Name,
			Topic:         msg.Topic,
			Partition:     msg.Partition,
			Offset:        strconv.FormatInt(msg.Offset, 10),
			Key:           string(msg.Key),
			Value:         string(msg.Value),
			Timestamp:     strconv.FormatInt(msg.Timestamp.UnixMilli(), 10),
			Headers:       msg.Headers,
		})

		p.metrics.ObserveProcessing(msg.Topic, h.GroupID, time.Since(start).Seconds())
	}
}

// Seek moves the cursor of the named consumer. It returns false when the name
// resolves to no live handle or the log rejects the seek.
func (p *ConsumerPool) Seek(name string, target SeekTarget) bool {
	h, ok := p.directory.Lookup(name)
	if !ok {
		utils.Logger.Warn("consumer not found for seek", "consumer", name)
		return false
	}
	if err := h.sub.Seek(target.Topic, target.Partition, target.Offset); err != nil {
		utils.Logger.Error("seek failed", "consumer", h.Name, "topic", target.Topic, "partition", target.Partition, "offset", target.Offset, "err", err)
		return false
	}
	utils.Logger.Info("seeking consumer", "consumer", h.Name, "topic", target.Topic, "partition", target.Partition, "offset", target.Offset)
	return true
}

// SeekConsumer moves the named consumer on its home partition of the pool topic.
func (p *ConsumerPool) SeekConsumer(name string, offset int64) bool {
	return p.Seek(name, SeekTarget{Topic: p.cfg.Topic, Partition: p.HomePartition(name), Offset: offset})
}

// HomePartition returns the partition an operator seek targets by default:
// instance n maps to partition n-1, out-of-range instances to partition 0.
func (p *ConsumerPool) HomePartition(name string) int32 {
	idx := p.directory.Resolve(name) - 1
	if idx < 0 || idx >= p.cfg.Partitions {
		return 0
	}
	return int32(idx)
}

// Topic returns the topic the pool consumes.
func (p *ConsumerPool) Topic() string {
	return p.cfg.Topic
}

// GroupID returns the shared consumer group.
func (p *ConsumerPool) GroupID() string {
	return p.cfg.GroupID
}

// Ready returns ErrPoolNotStarted unless the pool holds live subscriptions.
func (p *ConsumerPool) Ready() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.handles) == 0 {
		return ErrPoolNotStarted
	}
	return nil
}

// Consumers lists the live pool members.
func (p *ConsumerPool) Consumers() []ConsumerInfo {
	handles := p.directory.Handles()
	out := make([]ConsumerInfo, 0, len(handles))
	for _, h := range handles {
		out = append(out, ConsumerInfo{
			Name:          h.Name,
			InstanceID:    h.InstanceID,
			GroupID:       h.GroupID,
			HomePartition: p.HomePartition(h.Name),
			Consumed:      h.Consumed(),
		})
	}
	return out
}

// Close closes every subscription.
func (p *ConsumerPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
}

func (p *ConsumerPool) closeLocked() {
	for _, h := range p.handles {
		p.directory.Unregister(h.InstanceID)
		h.sub.Close()
		utils.Logger.Info("consumer disconnected", "consumer", h.Name)
	}
	p.handles = nil
}

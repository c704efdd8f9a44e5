package domain

import (
	"context"
	"errors"
	"time"
)

// ErrLogClosed is returned by an EventLog once it can no longer accept writes.
var ErrLogClosed = errors.New("event log closed")

// AnyPartition lets the log choose the partition of an appended record.
const AnyPartition int32 = -1

// Record is a write request to the partitioned log.
type Record struct {
	Topic     string
	Partition int32 // AnyPartition for log-assigned placement
	Key       []byte
	Value     []byte
	Headers   map[string]string
}

// Message is a record as delivered to a subscription.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// SubscriptionConfig describes a group member subscription to one topic.
type SubscriptionConfig struct {
	Topic         string
	GroupID       string
	ClientID      string
	FromBeginning bool
}

// MessageHandler is invoked for every message delivered to a subscription.
// Calls for one subscription never overlap.
type MessageHandler func(ctx context.Context, msg Message)

// Subscription is a live group member reading a topic.
type Subscription interface {
	// Seek repositions the read cursor of partition; it takes effect on the next read.
	Seek(topic string, partition int32, offset int64) error
	Close()
}

// EventLog is the partitioned log the harness writes to and reads from.
type EventLog interface {
	Append(ctx context.Context, rec Record) (int64, error)
	Subscribe(ctx context.Context, cfg SubscriptionConfig, handler MessageHandler) (Subscription, error)
	Close()
}

// PartitionOffsets holds the watermarks of one partition and the lag of a group on it.
type PartitionOffsets struct {
	Partition int32 `json:"partition"`
	Low       int64 `json:"low"`
	High      int64 `json:"high"`
	Committed int64 `json:"committed"`
	Lag       int64 `json:"lag"`
}

// LogInspector exposes administrative reads of the log.
type LogInspector interface {
	EnsureTopic(ctx context.Context, topic string, partitions int32) error
	PartitionOffsets(ctx context.Context, topic, group string) ([]PartitionOffsets, error)
}

// Broadcaster forwards payloads to realtime observers. Publish must not block.
type Broadcaster interface {
	Publish(channel string, payload any)
}

// MetricsSink records harness counters. All calls are fire-and-forget.
type MetricsSink interface {
	IncProduced(topic string)
	IncConsumed(topic, group string)
	ObserveProcessing(topic, group string, seconds float64)
	SetConsumerLag(topic string, partition int32, group string, lag int64)
}

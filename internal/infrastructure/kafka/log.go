package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/CoPhuocVinh/demo-kafka/internal/config"
	"github.com/CoPhuocVinh/demo-kafka/internal/domain"
	"github.com/CoPhuocVinh/demo-kafka/internal/utils"
)

const (
	sessionTimeout    = 30 * time.Second
	heartbeatInterval = 3 * time.Second
)

// Log implements domain.EventLog and domain.LogInspector on top of a Kafka
// cluster. One producer client is shared by all writers; every subscription
// owns its own group member client.
type Log struct {
	cfg      config.ClusterConfig
	producer *kgo.Client
	admin    *Admin
}

// NewLog creates the producer and admin clients. No connection is made until
// the first request.
func NewLog(cfg config.ClusterConfig, replicationFactor int16) (*Log, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		kgo.RecordPartitioner(newRoutedPartitioner()),
		kgo.AllowAutoTopicCreation(),
	)
	producer, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	return &Log{
		cfg:      cfg,
		producer: producer,
		admin:    NewAdmin(kadm.NewClient(producer), replicationFactor),
	}, nil
}

// Append produces rec synchronously and returns the offset the broker assigned.
func (l *Log) Append(ctx context.Context, rec domain.Record) (int64, error) {
	r := &kgo.Record{
		Topic:   rec.Topic,
		Key:     rec.Key,
		Value:   rec.Value,
		Headers: toRecordHeaders(rec.Headers),
	}
	if rec.Partition != domain.AnyPartition {
		withRoute(ctx, r, rec.Partition)
	}

	out, err := l.producer.ProduceSync(ctx, r).First()
	if err != nil {
		if errors.Is(err, kgo.ErrClientClosed) {
			return 0, domain.ErrLogClosed
		}
		return 0, fmt.Errorf("produce to %s: %w", rec.Topic, err)
	}
	return out.Offset, nil
}

// Subscribe joins cfg.GroupID with a dedicated client and starts polling. The
// cluster is pinged first so an unreachable broker fails the call.
func (l *Log) Subscribe(ctx context.Context, cfg domain.SubscriptionConfig, handler domain.MessageHandler) (domain.Subscription, error) {
	opts, err := clientOptions(l.cfg)
	if err != nil {
		return nil, err
	}
	reset := kgo.NewOffset().AtEnd()
	if cfg.FromBeginning {
		reset = kgo.NewOffset().AtStart()
	}
	opts = append(opts,
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(reset),
		kgo.SessionTimeout(sessionTimeout),
		kgo.HeartbeatInterval(heartbeatInterval),
	)
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect %s: %w", cfg.ClientID, err)
	}

	s := newSubscription(client, cfg, handler)
	go s.run()
	return s, nil
}

// EnsureTopic creates topic when it does not exist yet.
func (l *Log) EnsureTopic(ctx context.Context, topic string, partitions int32) error {
	return l.admin.EnsureTopic(ctx, topic, partitions)
}

// PartitionOffsets reports watermarks and the committed lag of group per partition.
func (l *Log) PartitionOffsets(ctx context.Context, topic, group string) ([]domain.PartitionOffsets, error) {
	return l.admin.PartitionOffsets(ctx, topic, group)
}

// Close flushes buffered records and closes the producer.
func (l *Log) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.producer.Flush(ctx); err != nil {
		utils.Logger.Warn("flush before close failed", "err", err)
	}
	l.producer.Close()
}

func toRecordHeaders(h map[string]string) []kgo.RecordHeader {
	if len(h) == 0 {
		return nil
	}
	out := make([]kgo.RecordHeader, 0, len(h))
	for k, v := range h {
		out = append(out, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}
	return out
}

func fromRecordHeaders(h []kgo.RecordHeader) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for _, rh := range h {
		out[rh.Key] = string(rh.Value)
	}
	return out
}

func toMessage(r *kgo.Record) domain.Message {
	return domain.Message{
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
		Key:       r.Key,
		Value:     r.Value,
		Headers:   fromRecordHeaders(r.Headers),
		Timestamp: r.Timestamp,
	}
}

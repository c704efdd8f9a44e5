// Package testutil holds test doubles for the domain ports.
package testutil

import (
	"context"
	"sync"

	"github.com/CoPhuocVinh/demo-kafka/internal/domain"
)

// Published is one payload captured by FakeBroadcaster.
type Published struct {
	Channel string
	Payload any
}

// FakeBroadcaster records every published payload.
type FakeBroadcaster struct {
	mu   sync.Mutex
	msgs []Published
}

func (b *FakeBroadcaster) Publish(channel string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, Published{Channel: channel, Payload: payload})
}

// Messages returns a copy of what was published so far.
func (b *FakeBroadcaster) Messages() []Published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Published(nil), b.msgs...)
}

// FakeMetrics counts sink calls.
type FakeMetrics struct {
	mu          sync.Mutex
	Produced    map[string]int
	Consumed    map[string]int
	Observed    int
	ConsumerLag map[int32]int64
}

func NewFakeMetrics() *FakeMetrics {
	return &FakeMetrics{
		Produced:    map[string]int{},
		Consumed:    map[string]int{},
		ConsumerLag: map[int32]int64{},
	}
}

func (m *FakeMetrics) IncProduced(topic string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Produced[topic]++
}

func (m *FakeMetrics) IncConsumed(topic, group string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Consumed[topic+"/"+group]++
}

func (m *FakeMetrics) ObserveProcessing(_, _ string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Observed++
}

func (m *FakeMetrics) SetConsumerLag(_ string, partition int32, _ string, lag int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConsumerLag[partition] = lag
}

// ProducedCount returns the produced counter of topic.
func (m *FakeMetrics) ProducedCount(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Produced[topic]
}

// FakeInspector returns canned partition offsets.
type FakeInspector struct {
	Offsets []domain.PartitionOffsets
	Err     error
	Created map[string]int32
}

func (f *FakeInspector) EnsureTopic(_ context.Context, topic string, partitions int32) error {
	if f.Err != nil {
		return f.Err
	}
	if f.Created == nil {
		f.Created = map[string]int32{}
	}
	f.Created[topic] = partitions
	return nil
}

func (f *FakeInspector) PartitionOffsets(_ context.Context, _, _ string) ([]domain.PartitionOffsets, error) {
	return f.Offsets, f.Err
}

// FakeLog is an EventLog whose appends are answered by AppendFunc and whose
// subscriptions fail with SubscribeErr once SubscribeFailAt subscriptions exist.
type FakeLog struct {
	AppendFunc      func(ctx context.Context, rec domain.Record) (int64, error)
	SubscribeErr    error
	SubscribeFailAt int

	mu      sync.Mutex
	records []domain.Record
	subs    []*FakeSubscription
}

func (l *FakeLog) Append(ctx context.Context, rec domain.Record) (int64, error) {
	if l.AppendFunc != nil {
		if off, err := l.AppendFunc(ctx, rec); err != nil {
			return off, err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return int64(len(l.records) - 1), nil
}

func (l *FakeLog) Subscribe(_ context.Context, cfg domain.SubscriptionConfig, _ domain.MessageHandler) (domain.Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.SubscribeErr != nil && len(l.subs) >= l.SubscribeFailAt {
		return nil, l.SubscribeErr
	}
	s := &FakeSubscription{Config: cfg}
	l.subs = append(l.subs, s)
	return s, nil
}

func (l *FakeLog) Close() {}

// Records returns the appended records.
func (l *FakeLog) Records() []domain.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Record(nil), l.records...)
}

// Subscriptions returns the subscriptions opened so far.
func (l *FakeLog) Subscriptions() []*FakeSubscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*FakeSubscription(nil), l.subs...)
}

// FakeSubscription records seeks and closes.
type FakeSubscription struct {
	Config domain.SubscriptionConfig

	mu     sync.Mutex
	seeks  []domain.Message
	closed bool
}

func (s *FakeSubscription) Seek(topic string, partition int32, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeks = append(s.seeks, domain.Message{Topic: topic, Partition: partition, Offset: offset})
	return nil
}

func (s *FakeSubscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Seeks returns the requested positions as messages carrying topic, partition and offset.
func (s *FakeSubscription) Seeks() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.seeks...)
}

// Closed reports whether Close was called.
func (s *FakeSubscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

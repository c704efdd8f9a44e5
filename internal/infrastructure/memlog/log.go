// Package memlog implements a process-local partitioned log with consumer
// groups. It stands in for Kafka when the harness runs without a broker and
// backs the application tests.
package memlog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/CoPhuocVinh/demo-kafka/internal/domain"
)

// ErrUnknownPartition is returned when a record targets a partition the topic does not have.
var ErrUnknownPartition = errors.New("unknown partition")

// Log is an in-memory partitioned log. Messages are delivered synchronously to
// the group member owning the partition as part of Append.
type Log struct {
	mu         sync.Mutex
	partitions int32
	topics     map[string]*topic
	groups     map[string]*group
	next       int // round-robin cursor for log-assigned placement
	closed     bool
	now        func() time.Time
}

type topic struct {
	name       string
	partitions [][]domain.Message
}

type group struct {
	members []*Subscription
}

// New creates a log whose topics are created on first use with the given number of partitions.
func New(partitions int32) *Log {
	if partitions <= 0 {
		partitions = 1
	}
	return &Log{
		partitions: partitions,
		topics:     make(map[string]*topic),
		groups:     make(map[string]*group),
		now:        time.Now,
	}
}

func (l *Log) topicLocked(name string, partitions int32) *topic {
	t, ok := l.topics[name]
	if !ok {
		t = &topic{name: name, partitions: make([][]domain.Message, partitions)}
		l.topics[name] = t
	}
	return t
}

// Append stores rec and returns its offset. AnyPartition spreads records round-robin.
func (l *Log) Append(ctx context.Context, rec domain.Record) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return 0, domain.ErrLogClosed
	}
	t := l.topicLocked(rec.Topic, l.partitions)
	p := rec.Partition
	if p == domain.AnyPartition {
		p = int32(l.next % len(t.partitions))
		l.next++
	}
	if p < 0 || int(p) >= len(t.partitions) {
		l.mu.Unlock()
		return 0, fmt.Errorf("%w: %s/%d", ErrUnknownPartition, rec.Topic, p)
	}
	offset := int64(len(t.partitions[p]))
	t.partitions[p] = append(t.partitions[p], domain.Message{
		Topic:     rec.Topic,
		Partition: p,
		Offset:    offset,
		Key:       rec.Key,
		Value:     rec.Value,
		Headers:   rec.Headers,
		Timestamp: l.now(),
	})
	owners := l.ownersLocked(rec.Topic, p)
	l.mu.Unlock()

	for _, s := range owners {
		s.drain(ctx, p)
	}
	return offset, nil
}

// ownersLocked returns, per group, the member that owns partition p of topic.
// Partitions are spread over members in subscription order.
func (l *Log) ownersLocked(topicName string, p int32) []*Subscription {
	var out []*Subscription
	for _, g := range l.groups {
		var members []*Subscription
		for _, m := range g.members {
			if m.topic == topicName {
				members = append(members, m)
			}
		}
		if len(members) == 0 {
			continue
		}
		out = append(out, members[int(p)%len(members)])
	}
	return out
}

// Subscribe joins cfg.GroupID and starts delivering messages of cfg.Topic to handler.
func (l *Log) Subscribe(ctx context.Context, cfg domain.SubscriptionConfig, handler domain.MessageHandler) (domain.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, domain.ErrLogClosed
	}
	t := l.topicLocked(cfg.Topic, l.partitions)
	s := &Subscription{
		log:     l,
		topic:   cfg.Topic,
		group:   cfg.GroupID,
		handler: handler,
		cursors: make([]int64, len(t.partitions)),
	}
	if !cfg.FromBeginning {
		for p := range t.partitions {
			s.cursors[p] = int64(len(t.partitions[p]))
		}
	}
	g, ok := l.groups[cfg.GroupID]
	if !ok {
		g = &group{}
		l.groups[cfg.GroupID] = g
	}
	g.members = append(g.members, s)
	return s, nil
}

// PartitionOffsets reports watermarks and, for group, the lag of the owning member.
func (l *Log) PartitionOffsets(_ context.Context, topicName, groupID string) ([]domain.PartitionOffsets, error) {
	l.mu.Lock()
	t, ok := l.topics[topicName]
	if !ok {
		l.mu.Unlock()
		return nil, fmt.Errorf("unknown topic %q", topicName)
	}
	out := make([]domain.PartitionOffsets, len(t.partitions))
	owners := make([]*Subscription, len(t.partitions))
	for p := range t.partitions {
		out[p] = domain.PartitionOffsets{Partition: int32(p), High: int64(len(t.partitions[p]))}
		if g, ok := l.groups[groupID]; ok {
			var members []*Subscription
			for _, m := range g.members {
				if m.topic == topicName {
					members = append(members, m)
				}
			}
			if len(members) > 0 {
				owners[p] = members[p%len(members)]
			}
		}
	}
	l.mu.Unlock()

	for p, s := range owners {
		if s == nil {
			continue
		}
		c := s.cursor(int32(p))
		out[p].Committed = c
		out[p].Lag = max(out[p].High-c, 0)
	}
	return out, nil
}

// EnsureTopic creates topic with the given partition count if it does not exist.
func (l *Log) EnsureTopic(_ context.Context, topicName string, partitions int32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.topics[topicName]; ok {
		if int32(len(t.partitions)) != partitions {
			return fmt.Errorf("topic %q exists with %d partitions", topicName, len(t.partitions))
		}
		return nil
	}
	l.topicLocked(topicName, partitions)
	return nil
}

// Close rejects further appends and subscriptions.
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.groups = make(map[string]*group)
}

func (l *Log) read(topicName string, p int32, from int64) []domain.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.topics[topicName]
	if !ok || int(p) >= len(t.partitions) {
		return nil
	}
	msgs := t.partitions[p]
	if from < 0 {
		from = 0
	}
	if from >= int64(len(msgs)) {
		return nil
	}
	out := make([]domain.Message, len(msgs)-int(from))
	copy(out, msgs[from:])
	return out
}

func (l *Log) leave(s *Subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	g, ok := l.groups[s.group]
	if !ok {
		return
	}
	for i, m := range g.members {
		if m == s {
			g.members = append(g.members[:i], g.members[i+1:]...)
			break
		}
	}
	if len(g.members) == 0 {
		delete(l.groups, s.group)
	}
}

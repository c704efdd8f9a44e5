package memlog

import (
	"context"
	"fmt"
	"sync"

	"github.com/CoPhuocVinh/demo-kafka/internal/domain"
)

// Subscription is one group member of a Log. Deliveries and seeks on the same
// subscription are serialized by its mutex.
type Subscription struct {
	log     *Log
	topic   string
	group   string
	handler domain.MessageHandler

	mu      sync.Mutex
	cursors []int64
	closed  bool
}

// Seek moves the cursor of partition; it is applied on the next delivery.
func (s *Subscription) Seek(topic string, partition int32, offset int64) error {
	if topic != s.topic {
		return fmt.Errorf("subscription reads %q, not %q", s.topic, topic)
	}
	if offset < 0 {
		return fmt.Errorf("negative offset %d", offset)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrLogClosed
	}
	if partition < 0 || int(partition) >= len(s.cursors) {
		return fmt.Errorf("%w: %s/%d", ErrUnknownPartition, topic, partition)
	}
	s.cursors[partition] = offset
	return nil
}

// Close leaves the group. Pending deliveries finish first.
func (s *Subscription) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.log.leave(s)
}

func (s *Subscription) cursor(p int32) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursors[p]
}

// drain delivers every message of partition p from the cursor up to the high watermark.
func (s *Subscription) drain(ctx context.Context, p int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || int(p) >= len(s.cursors) {
		return
	}
	for _, m := range s.log.read(s.topic, p, s.cursors[p]) {
		s.handler(ctx, m)
		s.cursors[p] = m.Offset + 1
	}
}

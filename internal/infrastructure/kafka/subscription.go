package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/CoPhuocVinh/demo-kafka/internal/domain"
	"github.com/CoPhuocVinh/demo-kafka/internal/utils"
)

// subscription is a single consumer group member. Record handling and seeks
// are serialized so a seek never interleaves with a half-handled batch.
type subscription struct {
	client  *kgo.Client
	topic   string
	name    string
	handler domain.MessageHandler

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu sync.Mutex
}

func newSubscription(client *kgo.Client, cfg domain.SubscriptionConfig, handler domain.MessageHandler) *subscription {
	ctx, cancel := context.WithCancel(context.Background())
	return &subscription{
		client:  client,
		topic:   cfg.Topic,
		name:    cfg.ClientID,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

func (s *subscription) run() {
	defer close(s.done)
	for {
		fetches := s.client.PollFetches(s.ctx)
		if fetches.IsClientClosed() || s.ctx.Err() != nil {
			return
		}
		fetches.EachError(func(t string, p int32, err error) {
			utils.Logger.Error("fetch failed", "consumer", s.name, "topic", t, "partition", p, "err", err)
		})

		s.mu.Lock()
		fetches.EachRecord(func(r *kgo.Record) {
			s.handler(s.ctx, toMessage(r))
		})
		s.mu.Unlock()
	}
}

// Seek moves the fetch position of partition. Partitions not assigned to this
// member are left untouched by the client.
func (s *subscription) Seek(topic string, partition int32, offset int64) error {
	if topic != s.topic {
		return fmt.Errorf("subscription reads %q, not %q", s.topic, topic)
	}
	if offset < 0 {
		return fmt.Errorf("negative offset %d", offset)
	}
	if s.ctx.Err() != nil {
		return domain.ErrLogClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.SetOffsets(map[string]map[int32]kgo.EpochOffset{
		topic: {partition: {Epoch: -1, Offset: offset}},
	})
	return nil
}

// Close stops polling, commits what was consumed and leaves the group.
func (s *subscription) Close() {
	s.cancel()
	<-s.done
	s.client.Close()
}

package kafka

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kfake"

	"github.com/CoPhuocVinh/demo-kafka/internal/config"
	"github.com/CoPhuocVinh/demo-kafka/internal/domain"
)

const clusterTopic = "demo-events"

func newClusterConfig(t *testing.T) config.ClusterConfig {
	t.Helper()
	c, err := kfake.NewCluster(kfake.NumBrokers(1))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return config.ClusterConfig{Brokers: c.ListenAddrs(), ClientID: "demo-kafka-test"}
}

// startCluster runs an in-process cluster and returns a connected Log with
// clusterTopic created with three partitions.
func startCluster(t *testing.T) *Log {
	t.Helper()
	l, err := NewLog(newClusterConfig(t), 1)
	require.NoError(t, err)
	t.Cleanup(l.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, l.EnsureTopic(ctx, clusterTopic, 3))
	return l
}

func appendN(t *testing.T, l *Log, partition int32, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := range n {
		_, err := l.Append(ctx, domain.Record{
			Topic:     clusterTopic,
			Partition: partition,
			Key:       []byte(fmt.Sprintf("evt-%d", i)),
			Value:     []byte(`{}`),
		})
		require.NoError(t, err)
	}
}

func offsetsOf(t *testing.T, l *Log, group string) []domain.PartitionOffsets {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	offsets, err := l.PartitionOffsets(ctx, clusterTopic, group)
	require.NoError(t, err)
	require.Len(t, offsets, 3)
	return offsets
}

type received struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (r *received) handle(_ context.Context, m domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func (r *received) snapshot() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Message(nil), r.msgs...)
}

func TestLog_EnsureTopicIsIdempotent(t *testing.T) {
	l := startCluster(t)
	require.NoError(t, l.EnsureTopic(context.Background(), clusterTopic, 3))
}

func TestLog_AppendHonorsRoutedPartition(t *testing.T) {
	l := startCluster(t)

	ctx := context.Background()
	for i := range 3 {
		off, err := l.Append(ctx, domain.Record{Topic: clusterTopic, Partition: 2, Key: []byte(fmt.Sprintf("k-%d", i)), Value: []byte("v")})
		require.NoError(t, err)
		require.Equal(t, int64(i), off)
	}
	_, err := l.Append(ctx, domain.Record{Topic: clusterTopic, Partition: domain.AnyPartition, Value: []byte("free")})
	require.NoError(t, err)

	// the unrouted record may land anywhere, the routed ones only on partition 2
	offsets := offsetsOf(t, l, "nobody")
	require.LessOrEqual(t, offsets[0].High+offsets[1].High, int64(1))
	var total int64
	for _, o := range offsets {
		total += o.High
		require.Equal(t, int64(-1), o.Committed)
		require.Equal(t, o.High-o.Low, o.Lag)
	}
	require.Equal(t, int64(4), total)
	require.GreaterOrEqual(t, offsets[2].High, int64(3))
}

func TestLog_AppendAfterClose(t *testing.T) {
	l, err := NewLog(newClusterConfig(t), 1)
	require.NoError(t, err)
	l.Close()
	_, err = l.Append(context.Background(), domain.Record{Topic: clusterTopic, Partition: 0, Value: []byte("v")})
	require.ErrorIs(t, err, domain.ErrLogClosed)
}

func TestSubscription_SeekAndCommittedLag(t *testing.T) {
	l := startCluster(t)
	appendN(t, l, 0, 50)

	r := &received{}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sub, err := l.Subscribe(ctx, domain.SubscriptionConfig{
		Topic:         clusterTopic,
		GroupID:       "demo-shared-group",
		ClientID:      "demo-consumer-1",
		FromBeginning: true,
	}, r.handle)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(r.snapshot()) == 50 }, 30*time.Second, 20*time.Millisecond)

	require.NoError(t, sub.Seek(clusterTopic, 0, 42))
	require.Eventually(t, func() bool { return len(r.snapshot()) == 58 }, 10*time.Second, 20*time.Millisecond)

	msgs := r.snapshot()
	require.Equal(t, int64(49), msgs[49].Offset)
	require.Equal(t, int64(42), msgs[50].Offset)
	require.Equal(t, int64(49), msgs[57].Offset)
	for _, m := range msgs {
		require.Equal(t, int32(0), m.Partition)
	}

	require.Error(t, sub.Seek("other-topic", 0, 1))
	require.Error(t, sub.Seek(clusterTopic, 0, -1))

	// leaving the group commits what was consumed
	sub.Close()
	require.ErrorIs(t, sub.Seek(clusterTopic, 0, 1), domain.ErrLogClosed)

	require.Eventually(t, func() bool {
		o := offsetsOf(t, l, "demo-shared-group")[0]
		return o.High == 50 && o.Committed == 50 && o.Lag == 0
	}, 10*time.Second, 50*time.Millisecond)

	appendN(t, l, 0, 5)
	o := offsetsOf(t, l, "demo-shared-group")[0]
	require.Equal(t, int64(55), o.High)
	require.Equal(t, int64(50), o.Committed)
	require.Equal(t, int64(5), o.Lag)
}

func TestLog_SubscribeUnreachableBroker(t *testing.T) {
	l, err := NewLog(config.ClusterConfig{Brokers: []string{"127.0.0.1:1"}}, 1)
	require.NoError(t, err)
	t.Cleanup(l.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = l.Subscribe(ctx, domain.SubscriptionConfig{Topic: clusterTopic, GroupID: "g", ClientID: "demo-consumer-1"}, func(context.Context, domain.Message) {})
	require.Error(t, err)
	require.Contains(t, err.Error(), "demo-consumer-1")
}

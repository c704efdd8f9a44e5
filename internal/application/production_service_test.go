package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CoPhuocVinh/demo-kafka/internal/domain"
	"github.com/CoPhuocVinh/demo-kafka/internal/testutil"
)

// manualTicker hands every loop the same channel so tests decide when ticks fire.
type manualTicker struct {
	ch chan time.Time

	mu        sync.Mutex
	intervals []time.Duration
	stopped   atomic.Int32
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time, 16)}
}

func (m *manualTicker) start(d time.Duration) (<-chan time.Time, func()) {
	m.mu.Lock()
	m.intervals = append(m.intervals, d)
	m.mu.Unlock()
	return m.ch, func() { m.stopped.Add(1) }
}

func (m *manualTicker) fire() { m.ch <- time.Now() }

func newTestProduction(t *testing.T, log domain.EventLog, ticker *manualTicker) (*ProductionService, *testutil.FakeMetrics) {
	t.Helper()
	metrics := testutil.NewFakeMetrics()
	svc := NewProductionService(log, metrics, ProductionConfig{
		Topic:           "demo-events",
		Partitions:      3,
		DefaultInterval: time.Second,
	}, WithTicker(ticker.start))
	t.Cleanup(func() { svc.Stop() })
	return svc, metrics
}

func TestProductionService_TickProducesRoutedEvent(t *testing.T) {
	log := &testutil.FakeLog{}
	ticker := newManualTicker()
	svc, metrics := newTestProduction(t, log, ticker)
	require.True(t, svc.Configure(domain.WeightVector{0, 1, 0}))

	require.Equal(t, time.Second, svc.Start(0))
	ticker.fire()
	require.Eventually(t, func() bool { return len(log.Records()) == 1 }, time.Second, 5*time.Millisecond)

	rec := log.Records()[0]
	require.Equal(t, "demo-events", rec.Topic)
	require.Equal(t, int32(1), rec.Partition)
	require.NotEmpty(t, rec.Key)
	require.Eventually(t, func() bool {
		return metrics.ProducedCount("demo-events") == 1 && svc.Statistics().TotalMessagesProduced == 1
	}, time.Second, 5*time.Millisecond)
}

func TestProductionService_StartTwiceRunsOneLoop(t *testing.T) {
	log := &testutil.FakeLog{}
	ticker := newManualTicker()
	svc, _ := newTestProduction(t, log, ticker)

	svc.Start(0)
	svc.Start(250 * time.Millisecond)
	require.EqualValues(t, 1, ticker.stopped.Load())
	require.Equal(t, int64(250), svc.Statistics().IntervalMs)

	ticker.fire()
	require.Eventually(t, func() bool { return len(log.Records()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.Len(t, log.Records(), 1)
}

func TestProductionService_StopHaltsTicks(t *testing.T) {
	log := &testutil.FakeLog{}
	ticker := newManualTicker()
	svc, _ := newTestProduction(t, log, ticker)

	svc.Start(0)
	require.True(t, svc.Stop())
	svc.Start(0)
	require.True(t, svc.Stop())
	require.False(t, svc.Stop())

	ticker.fire()
	time.Sleep(50 * time.Millisecond)
	require.Empty(t, log.Records())
	require.False(t, svc.Running())
	require.False(t, svc.Statistics().IsProducing)
}

func TestProductionService_ConfigureRejectsWrongShape(t *testing.T) {
	svc, _ := newTestProduction(t, &testutil.FakeLog{}, newManualTicker())

	require.False(t, svc.Configure(domain.WeightVector{1, 2}))
	require.False(t, svc.Configure(domain.WeightVector{1, 2, 3, 4}))
	require.False(t, svc.Configure(domain.WeightVector{1, -2, 3}))
	require.Equal(t, domain.WeightVector{1, 1, 1}, svc.Weights())

	require.True(t, svc.Configure(domain.WeightVector{5, 1, 0}))
	require.Equal(t, domain.WeightVector{5, 1, 0}, svc.Weights())
	require.Equal(t, []int{5, 1, 0}, svc.Statistics().PartitionWeights)
}

func TestProductionService_TickFailureDoesNotStopLoop(t *testing.T) {
	var calls atomic.Int32
	log := &testutil.FakeLog{AppendFunc: func(context.Context, domain.Record) (int64, error) {
		if calls.Add(1) == 1 {
			return 0, errors.New("broker unavailable")
		}
		return 0, nil
	}}
	ticker := newManualTicker()
	svc, _ := newTestProduction(t, log, ticker)

	svc.Start(0)
	ticker.fire()
	ticker.fire()
	require.Eventually(t, func() bool { return len(log.Records()) == 1 }, time.Second, 5*time.Millisecond)
	require.True(t, svc.Running())
	require.Eventually(t, func() bool { return svc.Statistics().TotalMessagesProduced == 1 }, time.Second, 5*time.Millisecond)
}

func TestProductionService_ClosedLogEndsLoop(t *testing.T) {
	log := &testutil.FakeLog{AppendFunc: func(context.Context, domain.Record) (int64, error) {
		return 0, domain.ErrLogClosed
	}}
	ticker := newManualTicker()
	svc, _ := newTestProduction(t, log, ticker)

	svc.Start(0)
	ticker.fire()
	require.Eventually(t, func() bool { return !svc.Running() }, time.Second, 5*time.Millisecond)
	require.False(t, svc.Statistics().IsProducing)
}

func TestProductionService_RestartAfterLoopEndedItself(t *testing.T) {
	var closed atomic.Bool
	closed.Store(true)
	log := &testutil.FakeLog{AppendFunc: func(context.Context, domain.Record) (int64, error) {
		if closed.Load() {
			return 0, domain.ErrLogClosed
		}
		return 0, nil
	}}
	ticker := newManualTicker()
	svc, _ := newTestProduction(t, log, ticker)

	svc.Start(0)
	ticker.fire()
	require.Eventually(t, func() bool { return !svc.Running() }, time.Second, 5*time.Millisecond)
	// nothing was running any more, so there is nothing to stop
	require.False(t, svc.Stop())

	closed.Store(false)
	svc.Start(0)
	require.True(t, svc.Running())
	ticker.fire()
	require.Eventually(t, func() bool { return len(log.Records()) == 1 }, time.Second, 5*time.Millisecond)
	require.True(t, svc.Stop())
}

func TestProductionService_SetDefaultInterval(t *testing.T) {
	ticker := newManualTicker()
	svc, _ := newTestProduction(t, &testutil.FakeLog{}, ticker)

	svc.SetDefaultInterval(0)
	require.Equal(t, time.Second, svc.Start(0))
	svc.SetDefaultInterval(300 * time.Millisecond)
	require.Equal(t, 300*time.Millisecond, svc.Start(0))
	require.Equal(t, []time.Duration{time.Second, 300 * time.Millisecond}, ticker.intervals)
}

func TestProductionService_SendCustom(t *testing.T) {
	log := &testutil.FakeLog{}
	svc, metrics := newTestProduction(t, log, newManualTicker())

	offset, err := svc.SendCustom(context.Background(), []byte(`{"hello":"world"}`))
	require.NoError(t, err)
	require.Equal(t, int64(0), offset)

	records := log.Records()
	require.Len(t, records, 1)
	require.Equal(t, domain.AnyPartition, records[0].Partition)
	require.JSONEq(t, `{"hello":"world"}`, string(records[0].Value))
	require.Equal(t, 1, metrics.ProducedCount("demo-events"))
	// custom sends are not part of the periodic counter
	require.Zero(t, svc.Statistics().TotalMessagesProduced)

	_, err = svc.SendCustom(context.Background(), []byte("  "))
	require.ErrorIs(t, err, ErrEmptyPayload)
}

func TestProductionService_SendCustomReturnsLogError(t *testing.T) {
	log := &testutil.FakeLog{AppendFunc: func(context.Context, domain.Record) (int64, error) {
		return 0, domain.ErrLogClosed
	}}
	svc, metrics := newTestProduction(t, log, newManualTicker())

	_, err := svc.SendCustom(context.Background(), []byte(`{}`))
	require.ErrorIs(t, err, domain.ErrLogClosed)
	require.Zero(t, metrics.ProducedCount("demo-events"))
}

func TestNewProductionService_Defaults(t *testing.T) {
	svc := NewProductionService(&testutil.FakeLog{}, nil, ProductionConfig{Topic: "t", Weights: domain.WeightVector{1}})
	require.Equal(t, 3, svc.Partitions())
	require.Equal(t, domain.WeightVector{1, 1, 1}, svc.Weights())
	require.False(t, svc.Running())
}

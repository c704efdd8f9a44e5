package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/CoPhuocVinh/demo-kafka/internal/domain"
	"github.com/CoPhuocVinh/demo-kafka/internal/utils"
)

// DefaultInterval is used when neither the caller nor the configuration supplies one.
const DefaultInterval = 2 * time.Second

// progressEvery controls how often a produced-count line is logged.
const progressEvery = 10

// TickerFunc starts a periodic tick source and returns its channel and a stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func wallTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// ProductionConfig configures a ProductionService.
type ProductionConfig struct {
	Topic           string
	Partitions      int
	DefaultInterval time.Duration
	Weights         domain.WeightVector
}

// ProductionOption customizes a ProductionService.
type ProductionOption func(*ProductionService)

// WithRouter replaces the partition router.
func WithRouter(r *PartitionRouter) ProductionOption {
	return func(s *ProductionService) { s.router = r }
}

// WithGenerator replaces the event generator.
func WithGenerator(g *EventGenerator) ProductionOption {
	return func(s *ProductionService) { s.generator = g }
}

// WithTicker replaces the tick source.
func WithTicker(f TickerFunc) ProductionOption {
	return func(s *ProductionService) { s.newTicker = f }
}

// ProductionService runs the periodic produce loop and owns the weight vector
// and production state.
type ProductionService struct {
	log       domain.EventLog
	metrics   domain.MetricsSink
	router    *PartitionRouter
	generator *EventGenerator
	stats     *Statistics
	newTicker TickerFunc

	topic           string
	partitions      int
	defaultInterval time.Duration

	// mu serializes Start and Stop and guards defaultInterval; the loop
	// goroutine never takes it.
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	wmu     sync.RWMutex
	weights domain.WeightVector
}

// NewProductionService creates a stopped production loop writing to log.
func NewProductionService(log domain.EventLog, metrics domain.MetricsSink, cfg ProductionConfig, opts ...ProductionOption) *ProductionService {
	if cfg.Partitions <= 0 {
		cfg.Partitions = 3
	}
	if cfg.DefaultInterval <= 0 {
		cfg.DefaultInterval = DefaultInterval
	}
	if !cfg.Weights.Valid(cfg.Partitions) {
		cfg.Weights = domain.EqualWeights(cfg.Partitions)
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	s := &ProductionService{
		log:             log,
		metrics:         metrics,
		stats:           NewStatistics(cfg.Weights),
		newTicker:       wallTicker,
		topic:           cfg.Topic,
		partitions:      cfg.Partitions,
		defaultInterval: cfg.DefaultInterval,
		weights:         cfg.Weights.Clone(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.router == nil {
		s.router = NewPartitionRouter(nil)
	}
	if s.generator == nil {
		s.generator = NewEventGenerator(nil, nil)
	}
	return s
}

// Start begins producing one event every interval, restarting the loop if it is
// already running. A non-positive interval selects the configured default. It
// returns the interval in effect.
func (s *ProductionService) Start(interval time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if interval <= 0 {
		interval = s.defaultInterval
	}
	if s.cancel != nil {
		if s.runningLocked() {
			utils.Logger.Warn("producer already running, restarting")
		}
		s.stopLocked()
	}

	ctx, cancel := context.WithCancel(context.Background())
	ticks, stopTicker := s.newTicker(interval)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.stats.setInterval(interval)
	s.stats.setRunning(true)

	go s.run(ctx, ticks, stopTicker, done)

	utils.Logger.Info("started producing demo events", "topic", s.topic, "interval", interval.String())
	return interval
}

// Stop halts the loop. It is a no-op when already stopped and reports whether a
// running loop was stopped. No tick runs after Stop returns.
func (s *ProductionService) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return false
	}
	// the loop may have ended itself on a closed log
	wasRunning := s.runningLocked()
	s.stopLocked()
	if wasRunning {
		utils.Logger.Info("stopped producing demo events", "produced", s.stats.produced.Load())
	}
	return wasRunning
}

func (s *ProductionService) stopLocked() {
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	s.stats.setRunning(false)
}

// Running reports whether the loop is active.
func (s *ProductionService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningLocked()
}

func (s *ProductionService) runningLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// SetDefaultInterval replaces the interval used by Start when none is given.
// Non-positive values are ignored.
func (s *ProductionService) SetDefaultInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultInterval = d
}

// Configure replaces the weight vector. Vectors whose length differs from the
// partition count, or holding a negative weight, are ignored and false is returned.
func (s *ProductionService) Configure(weights domain.WeightVector) bool {
	if !weights.Valid(s.partitions) {
		utils.Logger.Warn("ignoring partition weights", "weights", weights, "partitions", s.partitions)
		return false
	}
	s.wmu.Lock()
	s.weights = weights.Clone()
	s.wmu.Unlock()
	s.stats.setWeights(weights)

	utils.Logger.Info("updated partition weights", "weights", weights)
	return true
}

// Weights returns a copy of the current weight vector.
func (s *ProductionService) Weights() domain.WeightVector {
	s.wmu.RLock()
	defer s.wmu.RUnlock()
	return s.weights.Clone()
}

// Statistics returns the current production snapshot.
func (s *ProductionService) Statistics() StatisticsSnapshot {
	return s.stats.Snapshot()
}

// Partitions returns the partition count weights are validated against.
func (s *ProductionService) Partitions() int {
	return s.partitions
}

// SendCustom writes payload verbatim to the topic, letting the log choose the
// partition. Unlike periodic ticks, failures are returned to the caller.
func (s *ProductionService) SendCustom(ctx context.Context, payload []byte) (int64, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return 0, ErrEmptyPayload
	}
	offset, err := s.log.Append(ctx, domain.Record{
		Topic:     s.topic,
		Partition: domain.AnyPartition,
		Value:     payload,
	})
	if err != nil {
		utils.Logger.Error("failed to produce custom message", "topic", s.topic, "err", err)
		return 0, fmt.Errorf("send custom message: %w", err)
	}
	s.metrics.IncProduced(s.topic)
	utils.Logger.Info("custom message sent", "topic", s.topic, "offset", offset)
	return offset, nil
}

func (s *ProductionService) run(ctx context.Context, ticks <-chan time.Time, stopTicker func(), done chan struct{}) {
	defer close(done)
	defer s.stats.setRunning(false)
	defer stopTicker()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			if ctx.Err() != nil {
				return
			}
			if err := s.tick(ctx); errors.Is(err, domain.ErrLogClosed) {
				utils.Logger.Error("production loop stopped", "err", err)
				return
			}
		}
	}
}

// tick produces a single routed event. Errors are logged and returned for the
// loop to classify; they never reach an operator.
func (s *ProductionService) tick(ctx context.Context) error {
	event := s.generator.Generate()
	value, err := json.Marshal(event)
	if err != nil {
		utils.Logger.Error("failed to encode demo event", "id", event.ID, "err", err)
		return err
	}

	partition := s.router.Route(s.Weights())
	offset, err := s.log.Append(ctx, domain.Record{
		Topic:     s.topic,
		Partition: partition,
		Key:       []byte(event.ID),
		Value:     value,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		utils.Logger.Error("failed to produce demo event", "topic", s.topic, "partition", partition, "err", err)
		return err
	}

	s.metrics.IncProduced(s.topic)
	n := s.stats.incProduced()
	utils.Logger.Debug("produced demo event", "id", event.ID, "type", event.Type, "partition", partition, "offset", offset)
	if n%progressEvery == 0 {
		utils.Logger.Info("produced messages", "count", n)
	}
	return nil
}

type noopMetrics struct{}

func (noopMetrics) IncProduced(string)                          {}
func (noopMetrics) IncConsumed(string, string)                  {}
func (noopMetrics) ObserveProcessing(string, string, float64)   {}
func (noopMetrics) SetConsumerLag(string, int32, string, int64) {}

// Package metrics exposes the harness counters through a Prometheus registry.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements domain.MetricsSink on a private registry.
type Prometheus struct {
	registry *prometheus.Registry

	produced    *prometheus.CounterVec
	consumed    *prometheus.CounterVec
	processing  *prometheus.HistogramVec
	consumerLag *prometheus.GaugeVec
	wsClients   prometheus.Gauge
}

// NewPrometheus registers the demo metrics plus the Go and process collectors.
func NewPrometheus() *Prometheus {
	m := &Prometheus{
		registry: prometheus.NewRegistry(),
		produced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_messages_produced_total",
			Help: "Total number of messages produced",
		}, []string{"topic"}),
		consumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_messages_consumed_total",
			Help: "Total number of messages consumed",
		}, []string{"topic", "consumer_group"}),
		processing: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kafka_message_processing_duration_seconds",
			Help:    "Time spent handling a consumed message",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"topic", "consumer_group"}),
		consumerLag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kafka_consumer_lag",
			Help: "Messages between the committed offset and the high watermark",
		}, []string{"topic", "partition", "consumer_group"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "websocket_active_connections",
			Help: "Number of connected websocket clients",
		}),
	}
	m.registry.MustRegister(
		m.produced,
		m.consumed,
		m.processing,
		m.consumerLag,
		m.wsClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// IncProduced counts one record appended to topic.
func (m *Prometheus) IncProduced(topic string) {
	m.produced.WithLabelValues(topic).Inc()
}

// IncConsumed counts one record delivered to a member of group.
func (m *Prometheus) IncConsumed(topic, group string) {
	m.consumed.WithLabelValues(topic, group).Inc()
}

// ObserveProcessing records how long a consumer spent handling one record.
func (m *Prometheus) ObserveProcessing(topic, group string, seconds float64) {
	m.processing.WithLabelValues(topic, group).Observe(seconds)
}

// SetConsumerLag sets the committed lag of group on one partition.
func (m *Prometheus) SetConsumerLag(topic string, partition int32, group string, lag int64) {
	m.consumerLag.WithLabelValues(topic, strconv.Itoa(int(partition)), group).Set(float64(lag))
}

// SetConnections records the number of live websocket clients.
func (m *Prometheus) SetConnections(n int) {
	m.wsClients.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Package metrics holds the Prometheus collectors shared by the broker and both managers.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a set of collectors bound to its own registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	messagesProduced *prometheus.CounterVec
	messagesConsumed *prometheus.CounterVec
	consumeEmpty     *prometheus.CounterVec
	requests         *prometheus.CounterVec
	fanOutFailures   *prometheus.CounterVec
	brokerPartitions *prometheus.GaugeVec
}

func New(role string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messagesProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqueue_messages_produced_total",
			Help: "Total number of messages produced",
		}, []string{"topic"}),
		messagesConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqueue_messages_consumed_total",
			Help: "Total number of messages consumed",
		}, []string{"topic"}),
		consumeEmpty: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqueue_consume_empty_total",
			Help: "Consume requests that found no data",
		}, []string{"topic"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "mqueue_requests_total",
			Help:        "HTTP requests served",
			ConstLabels: prometheus.Labels{"role": role},
		}, []string{"route", "status"}),
		fanOutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqueue_fanout_failures_total",
			Help: "Failed calls to brokers or read-only managers",
		}, []string{"target"}),
		brokerPartitions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mqueue_broker_partitions",
			Help: "Partitions assigned to each broker",
		}, []string{"broker"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.messagesProduced,
		m.messagesConsumed,
		m.consumeEmpty,
		m.requests,
		m.fanOutFailures,
		m.brokerPartitions,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) IncProduced(topic string) {
	if m == nil {
		return
	}
	m.messagesProduced.WithLabelValues(topic).Inc()
}

func (m *Metrics) IncConsumed(topic string) {
	if m == nil {
		return
	}
	m.messagesConsumed.WithLabelValues(topic).Inc()
}

func (m *Metrics) IncConsumeEmpty(topic string) {
	if m == nil {
		return
	}
	m.consumeEmpty.WithLabelValues(topic).Inc()
}

func (m *Metrics) IncRequest(route, status string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, status).Inc()
}

func (m *Metrics) IncFanOutFailure(target string) {
	if m == nil {
		return
	}
	m.fanOutFailures.WithLabelValues(target).Inc()
}

func (m *Metrics) SetBrokerPartitions(broker string, n int) {
	if m == nil {
		return
	}
	m.brokerPartitions.WithLabelValues(broker).Set(float64(n))
}

func (m *Metrics) DeleteBroker(broker string) {
	if m == nil {
		return
	}
	m.brokerPartitions.DeleteLabelValues(broker)
}

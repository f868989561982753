// Package metrics exposes the producer's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Message sources
const (
	SourceOneShot  = "oneshot"
	SourcePeriodic = "periodic"
)

// Metrics groups every collector registered by the service
type Metrics struct {
	MessagesPublished  *prometheus.CounterVec
	PublishFailures    *prometheus.CounterVec
	ConnectionAttempts prometheus.Counter
	PeriodicRunning    prometheus.Gauge
	HTTPRequests       *prometheus.CounterVec
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MessagesPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "producer_messages_published_total",
			Help: "Messages published to RabbitMQ",
		}, []string{"queue", "source"}),
		PublishFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "producer_publish_failures_total",
			Help: "Publish calls that returned an error",
		}, []string{"queue", "source"}),
		ConnectionAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "producer_rabbitmq_connection_attempts_total",
			Help: "Handshakes attempted while connecting to RabbitMQ",
		}),
		PeriodicRunning: factory.NewGauge(prometheus.GaugeOpts{
			Name: "producer_periodic_task_running",
			Help: "1 while a periodic publish task is active",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "producer_http_requests_total",
			Help: "HTTP requests handled, by route and status",
		}, []string{"method", "route", "status"}),
	}
}

// ObservePublish counts one publish outcome
func (m *Metrics) ObservePublish(queue, source string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.PublishFailures.WithLabelValues(queue, source).Inc()
		return
	}
	m.MessagesPublished.WithLabelValues(queue, source).Inc()
}

// SetPeriodicRunning flips the periodic task gauge
func (m *Metrics) SetPeriodicRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.PeriodicRunning.Set(1)
		return
	}
	m.PeriodicRunning.Set(0)
}

package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_producer_messages_published_total",
			Help: "Kafka messages written, by topic and event type",
		},
		[]string{"topic", "event_type"},
	)

	publishErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_producer_publish_errors_total",
			Help: "Kafka writes that failed, by topic and event type",
		},
		[]string{"topic", "event_type"},
	)

	publishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_producer_publish_duration_seconds",
			Help:    "Latency of Kafka writes, including failed ones",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)
)

func observePublish(topic, eventType string, elapsed time.Duration, err error) {
	publishDuration.WithLabelValues(topic).Observe(elapsed.Seconds())
	if err != nil {
		publishErrorsTotal.WithLabelValues(topic, eventType).Inc()
		return
	}
	publishedTotal.WithLabelValues(topic, eventType).Inc()
}

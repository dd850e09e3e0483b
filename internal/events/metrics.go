package events

import "github.com/prometheus/client_golang/prometheus"

var (
	publishedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "extracurricular",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Number of signup events written to Kafka.",
	})

	publishFailedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "extracurricular",
		Subsystem: "events",
		Name:      "publish_failures_total",
		Help:      "Number of signup events that could not be written to Kafka.",
	})
)

func init() {
	prometheus.MustRegister(publishedCounter, publishFailedCounter)
}

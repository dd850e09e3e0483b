// Package observability holds the Prometheus collectors shared by the API process.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Signup outcomes used as the "outcome" label.
const (
	OutcomeOK        = "ok"
	OutcomeNotFound  = "not_found"
	OutcomeDuplicate = "duplicate"
	OutcomeFull      = "full"
	OutcomeError     = "error"
)

var (
	signupCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "extracurricular",
		Subsystem: "directory",
		Name:      "signups_total",
		Help:      "Signup attempts grouped by outcome.",
	}, []string{"outcome"})

	rosterSizeGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "extracurricular",
		Subsystem: "directory",
		Name:      "roster_size",
		Help:      "Last observed number of participants per activity.",
	}, []string{"activity"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "extracurricular",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency of HTTP requests served by the API.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"code", "method"})
)

func init() {
	prometheus.MustRegister(signupCounter, rosterSizeGauge, requestDuration)
}

// RecordSignup increments the signup counter for outcome.
func RecordSignup(outcome string) {
	signupCounter.WithLabelValues(outcome).Inc()
}

// RecordRosterSize updates the roster gauge for an activity.
func RecordRosterSize(activity string, size int) {
	rosterSizeGauge.WithLabelValues(activity).Set(float64(size))
}

// InstrumentHandler records request latency for every request served by next.
func InstrumentHandler(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(requestDuration, next)
}

package api

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "burst",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "HTTP requests served, by method and status code.",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "burst",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
)

// Paths carry account addresses, so path is not a metric label.
func observeRequest(method, path string, status int, duration time.Duration) {
	requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// QueueDepth is the number of QUEUED messages currently admitted, by priority.
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "promptrelay_queue_depth",
			Help: "Number of queued messages by priority",
		},
		[]string{"priority"},
	)

	// MessagesTotal counts messages that have reached a terminal state.
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptrelay_messages_total",
			Help: "Total messages that reached a terminal state, by state",
		},
		[]string{"state"},
	)

	// ProcessingDuration records wall-clock time spent in PROCESSING.
	ProcessingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "promptrelay_processing_duration_seconds",
			Help:    "Time a message spends in the PROCESSING state",
			Buckets: prometheus.DefBuckets,
		},
	)

	// QueueWaitDuration records time spent QUEUED before dispatch picked it up.
	QueueWaitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "promptrelay_queue_wait_duration_seconds",
			Help:    "Time a message spends QUEUED before processing starts",
			Buckets: prometheus.DefBuckets,
		},
	)

	// StreamSubscribers is the number of live SSE subscribers across all streams.
	StreamSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "promptrelay_stream_subscribers",
			Help: "Current number of active stream subscribers",
		},
	)

	// APIRequestsTotal counts HTTP requests by route and status.
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptrelay_api_requests_total",
			Help: "Total HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)

	// APIRequestDuration records HTTP handler latency by route.
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promptrelay_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// ThreadsTotal is the number of distinct threads currently tracked.
	ThreadsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "promptrelay_threads_total",
			Help: "Total number of distinct threads tracked",
		},
	)
)

func init() {
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(MessagesTotal)
	prometheus.MustRegister(ProcessingDuration)
	prometheus.MustRegister(QueueWaitDuration)
	prometheus.MustRegister(StreamSubscribers)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(ThreadsTotal)
}

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPServerHandlingSeconds is a histogram for HTTP request latencies
	HTTPServerHandlingSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_handling_seconds",
			Help:    "Histogram of response latency (seconds) of HTTP requests handled by the server.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"path", "code"},
	)

	// InferenceBatchSize is a histogram for tracking per-model batch sizes
	InferenceBatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inference_batch_size",
			Help:    "Histogram of batch sizes submitted to the execution backend.",
			Buckets: []float64{1, 2, 4, 8, 16},
		},
		[]string{"model"},
	)

	// InferenceLatencySeconds is a histogram for submit+fetch latency per model
	InferenceLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inference_latency_seconds",
			Help:    "Histogram of inference latency (seconds) excluding HTTP overhead.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"model"},
	)

	// DroppedFramesTotal counts frames lost to backend execution failures
	DroppedFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dropped_frames_total",
			Help: "Frames dropped because a batch's backend execution failed.",
		},
		[]string{"model"},
	)

	// ResultsTotal counts fetched results by payload kind
	ResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inference_results_total",
			Help: "Results produced by fetches, labeled by payload kind.",
		},
		[]string{"kind"},
	)

	// HealthStatus is a gauge indicating the health status of the service
	HealthStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "health_status",
			Help: "Health status of the service (1 = healthy, 0 = unhealthy).",
		},
	)
)

// RecordHTTPLatency records the latency of an HTTP request
func RecordHTTPLatency(path, code string, seconds float64) {
	HTTPServerHandlingSeconds.WithLabelValues(path, code).Observe(seconds)
}

// RecordInferenceBatch records the batch size submitted for a model
func RecordInferenceBatch(model string, size int) {
	InferenceBatchSize.WithLabelValues(model).Observe(float64(size))
}

// RecordInferenceLatency records the latency of one submit+fetch cycle
func RecordInferenceLatency(model string, seconds float64) {
	InferenceLatencySeconds.WithLabelValues(model).Observe(seconds)
}

// RecordDroppedFrames counts frames lost to a failed execution cycle
func RecordDroppedFrames(model string, count int) {
	DroppedFramesTotal.WithLabelValues(model).Add(float64(count))
}

// RecordResults counts fetched results of one payload kind
func RecordResults(kind string, count int) {
	ResultsTotal.WithLabelValues(kind).Add(float64(count))
}

// SetHealthy sets the health status to healthy
func SetHealthy() {
	HealthStatus.Set(1)
}

// SetUnhealthy sets the health status to unhealthy
func SetUnhealthy() {
	HealthStatus.Set(0)
}

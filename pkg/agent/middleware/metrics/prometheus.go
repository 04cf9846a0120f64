// Package metrics provides Prometheus-based metrics recording for LLM operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	throttleTotal   *prometheus.CounterVec
}

// NewPrometheusRecorder creates a new Prometheus-based metrics recorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of LLM requests by model, provider, mode, and status",
			},
			[]string{"model", "provider", "task_id", "mode", "status", "error_type"},
		),
		tokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Total number of tokens used in LLM requests",
			},
			[]string{"model", "provider", "task_id", "mode", "type"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Duration of LLM requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "provider", "mode"},
		),
		throttleTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_throttle_total",
				Help: "Total number of LLM throttling events",
			},
			[]string{"model", "reason"},
		),
	}
}

// ObserveRequest records metrics for a completed LLM request.
func (p *PrometheusRecorder) ObserveRequest(
	model, provider, taskID, mode string,
	promptTokens, completionTokens int,
	success bool,
	errorType string,
	duration time.Duration,
) {
	status := "success"
	if !success {
		status = "error"
	}

	p.requestsTotal.WithLabelValues(model, provider, taskID, mode, status, errorType).Inc()

	if success {
		p.tokensTotal.WithLabelValues(model, provider, taskID, mode, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(model, provider, taskID, mode, "completion").Add(float64(completionTokens))
	}

	p.requestDuration.WithLabelValues(model, provider, mode).Observe(duration.Seconds())
}

// IncThrottle increments the throttle counter for rate limiting events.
func (p *PrometheusRecorder) IncThrottle(model, reason string) {
	p.throttleTotal.WithLabelValues(model, reason).Inc()
}

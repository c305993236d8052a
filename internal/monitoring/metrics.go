package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "heartrisk"

// ModelStates are the label values of the model state gauge, in lifecycle order.
var ModelStates = []string{"unloaded", "loading", "ready", "failed", "closed"}

// Metrics holds the Prometheus collectors of the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	assessments       *prometheus.CounterVec
	failures          *prometheus.CounterVec
	inferenceDuration prometheus.Histogram
	modelLoads        *prometheus.CounterVec
	modelLoadDuration prometheus.Gauge
	modelState        *prometheus.GaugeVec
	rateLimitBlocks   prometheus.Counter
}

// NewMetrics creates a metrics instance with its own registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Completed risk assessments by label.",
		}, []string{"label"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessment_failures_total",
			Help:      "Failed risk assessments by pipeline stage and error category.",
		}, []string{"stage", "category"}),
		inferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Model invocation latency.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
		modelLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_loads_total",
			Help:      "Model load attempts by result.",
		}, []string{"result"}),
		modelLoadDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_load_duration_seconds",
			Help:      "Duration of the last model load.",
		}),
		modelState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_state",
			Help:      "1 for the current inference session state, 0 otherwise.",
		}, []string{"state"}),
		rateLimitBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_blocks_total",
			Help:      "Requests rejected by the per-IP rate limiter.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.assessments,
		m.failures,
		m.inferenceDuration,
		m.modelLoads,
		m.modelLoadDuration,
		m.modelState,
		m.rateLimitBlocks,
	)
	m.SetModelState("unloaded")

	return m
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordRequest records one served HTTP request
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordAssessment records a completed assessment
func (m *Metrics) RecordAssessment(label string) {
	if m == nil {
		return
	}
	m.assessments.WithLabelValues(label).Inc()
}

// RecordFailure records a failed assessment at the given stage
func (m *Metrics) RecordFailure(stage, category string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(stage, category).Inc()
}

// RecordInference records the latency of one model invocation
func (m *Metrics) RecordInference(duration time.Duration) {
	if m == nil {
		return
	}
	m.inferenceDuration.Observe(duration.Seconds())
}

// RecordModelLoad records the outcome of a model load
func (m *Metrics) RecordModelLoad(duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.modelLoads.WithLabelValues(result).Inc()
	m.modelLoadDuration.Set(duration.Seconds())
}

// SetModelState flags state as current and clears the others
func (m *Metrics) SetModelState(state string) {
	if m == nil {
		return
	}
	for _, s := range ModelStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.modelState.WithLabelValues(s).Set(v)
	}
}

// IncrementRateLimitBlock counts a request rejected by the rate limiter
func (m *Metrics) IncrementRateLimitBlock() {
	if m == nil {
		return
	}
	m.rateLimitBlocks.Inc()
}

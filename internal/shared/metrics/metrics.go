package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exported at /metrics.
var Registry = prometheus.NewRegistry()

var (
	factory = promauto.With(Registry)

	httpRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	analysisTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "cv_analysis_total",
		Help: "CV analysis requests by outcome.",
	}, []string{"outcome"})

	stageFailuresTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "cv_analysis_stage_failures_total",
		Help: "CV analysis failures by pipeline stage.",
	}, []string{"stage"})

	extractionTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "cv_extraction_total",
		Help: "Text extractions by file kind and outcome.",
	}, []string{"kind", "outcome"})

	panicsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "http_panics_total",
		Help: "Handler panics recovered, by route template.",
	}, []string{"route"})

	llmDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cv_llm_request_duration_seconds",
		Help:    "Latency of calls to the completion service.",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"operation", "outcome"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IncAnalysis counts a finished analysis request; outcome is "completed" or "failed".
func IncAnalysis(outcome string) {
	analysisTotal.WithLabelValues(outcome).Inc()
}

// IncStageFailure counts a pipeline failure at the given stage.
func IncStageFailure(stage string) {
	stageFailuresTotal.WithLabelValues(stage).Inc()
}

// IncExtraction counts an extraction attempt.
func IncExtraction(kind, outcome string) {
	extractionTotal.WithLabelValues(kind, outcome).Inc()
}

// IncPanic counts a recovered handler panic.
func IncPanic(route string) {
	if route == "" {
		route = "unmatched"
	}
	panicsTotal.WithLabelValues(route).Inc()
}

// ObserveLLM records the duration of one completion call.
func ObserveLLM(operation, outcome string, d time.Duration) {
	llmDuration.WithLabelValues(operation, outcome).Observe(d.Seconds())
}

// Middleware records request counts and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		generationRequestsTotal,
		generationLatencyMs,
		generationPromptTokens,
		quotaBlocksTotal,
		rateLimitBlocksTotal,
		cacheRequestsTotal,
	)
}

var (
	generationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_requests_total",
			Help: "Generation requests by resource type and outcome.",
		},
		[]string{"type", "status"},
	)

	generationLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_latency_ms",
			Help:    "End-to-end generation latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
		},
		[]string{"type", "success"},
	)

	generationPromptTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_prompt_tokens",
			Help: "Estimated prompt tokens sent per provider.",
		},
		[]string{"provider"},
	)

	quotaBlocksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_blocks_total",
			Help: "Requests denied by the quota gate, per resource type.",
		},
		[]string{"type"},
	)

	rateLimitBlocksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_blocks_total",
			Help: "Requests denied by the fixed-window rate limiter.",
		},
		[]string{"type"},
	)

	cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Tracks cache hits and misses for various caches.",
		},
		[]string{"cache", "result"},
	)
)

func ObserveGeneration(resource string, latencyMs int, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	generationRequestsTotal.WithLabelValues(norm(resource), status).Inc()
	generationLatencyMs.WithLabelValues(norm(resource), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func AddPromptTokens(provider string, n int) {
	if n > 0 {
		generationPromptTokens.WithLabelValues(norm(provider)).Add(float64(n))
	}
}

func IncQuotaBlock(resource string) {
	quotaBlocksTotal.WithLabelValues(norm(resource)).Inc()
}

func IncRateLimitBlock(resource string) {
	rateLimitBlocksTotal.WithLabelValues(norm(resource)).Inc()
}

func IncCacheRequest(cacheName, result string) {
	cacheRequestsTotal.WithLabelValues(norm(cacheName), norm(result)).Inc()
}

// Package metrics defines the Prometheus collectors exposed at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// GraphCacheLookups counts graph cache lookups by outcome.
	GraphCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zena_graph_cache_lookups_total",
			Help: "Graph cache lookups by status (hit, miss, expired, force_reload).",
		},
		[]string{"graph", "status"},
	)

	// GraphBuildSeconds observes how long graph factory builds take.
	GraphBuildSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zena_graph_build_seconds",
			Help:    "Time spent building a compiled graph.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"graph"},
	)

	// LLMRequests counts chat completion calls by model and outcome.
	LLMRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zena_llm_requests_total",
			Help: "LLM completion requests by model and outcome (ok, error, failover).",
		},
		[]string{"model", "outcome"},
	)

	// LLMTokens counts tokens consumed by model and direction.
	LLMTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zena_llm_tokens_total",
			Help: "Tokens consumed by model and direction (input, output).",
		},
		[]string{"model", "direction"},
	)

	// MastersRefresh counts masters cache refresh attempts by outcome.
	MastersRefresh = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zena_masters_refresh_total",
			Help: "Masters cache refresh attempts by outcome (ok, error, skipped).",
		},
		[]string{"outcome"},
	)

	// Invocations counts graph invocations by graph and outcome.
	Invocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zena_graph_invocations_total",
			Help: "Graph invocations by graph and outcome (ok, error).",
		},
		[]string{"graph", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		GraphCacheLookups,
		GraphBuildSeconds,
		LLMRequests,
		LLMTokens,
		MastersRefresh,
		Invocations,
	)
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every chatpdf collector.
var Registry = prometheus.NewRegistry()

// Prometheus metrics
var (
	IndexBuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatpdf_index_builds_total",
			Help: "Vector index builds by result",
		},
		[]string{"result"},
	)
	IndexCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatpdf_index_cache_lookups_total",
			Help: "Index cache lookups by outcome (hit, miss, shared)",
		},
		[]string{"outcome"},
	)
	IndexBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatpdf_index_build_duration_seconds",
			Help:    "Duration of vector index builds in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7min
		},
	)
	EmbeddingCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatpdf_embedding_cache_lookups_total",
			Help: "Query and persisted embedding lookups by source and outcome",
		},
		[]string{"source", "outcome"},
	)
	ExternalCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatpdf_external_calls_total",
			Help: "Calls to embedding and LLM providers by kind and result",
		},
		[]string{"kind", "result"},
	)
	ExternalCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatpdf_external_call_duration_seconds",
			Help:    "Latency of embedding and LLM calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"kind"},
	)
	ExtractionFields = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatpdf_extraction_fields_total",
			Help: "Extracted schema fields by field and outcome (ok, not_found)",
		},
		[]string{"field", "outcome"},
	)
	ChatTurns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatpdf_chat_turns_total",
			Help: "Chat turns by result",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		IndexBuilds,
		IndexCacheLookups,
		IndexBuildDuration,
		EmbeddingCacheLookups,
		ExternalCalls,
		ExternalCallDuration,
		ExtractionFields,
		ChatTurns,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

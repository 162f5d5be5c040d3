// Package metrics declares the prometheus collectors exported by the
// engine. They are package-level vars that components update directly,
// registered once at package init, matching the teacher's idk metrics
// convention.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "dynengine"

var (
	IngestBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_batches_total",
			Help:      "IngestBatch requests handled by IngestEngine, by outcome.",
		},
		[]string{"outcome"},
	)

	IngestRows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_rows_total",
			Help:      "Records accepted by IngestEngine.",
		},
	)

	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "IngestBatch wall-clock latency.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	QuerySelects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_selects_total",
			Help:      "Retrieve requests handled by QueryEngine, by outcome.",
		},
		[]string{"outcome"},
	)

	QueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Retrieve wall-clock latency.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	StatementCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statement_cache_total",
			Help:      "StatementCache lookups, by hit/miss.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		IngestBatches,
		IngestRows,
		IngestDuration,
		QuerySelects,
		QueryDuration,
		StatementCacheHits,
	)
}

package rag

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeNoMatch = "no_match"
	OutcomeInvalid = "invalid"
)

// Metrics records coordinator activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ingestions    *prometheus.CounterVec
	chunksIndexed prometheus.Counter
	queries       *prometheus.CounterVec
	searchRetries prometheus.Counter
	queryDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ingestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docqa_ingestions_total",
			Help: "Document ingestions by outcome.",
		}, []string{"outcome"}),
		chunksIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docqa_chunks_indexed_total",
			Help: "Chunks embedded and written to the vector store.",
		}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docqa_queries_total",
			Help: "Answered queries by outcome.",
		}, []string{"outcome"}),
		searchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docqa_search_retries_total",
			Help: "Scoped searches retried after returning no matches.",
		}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docqa_query_duration_seconds",
			Help:    "End-to-end query latency.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
	for _, c := range []prometheus.Collector{m.ingestions, m.chunksIndexed, m.queries, m.searchRetries, m.queryDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ingestion(outcome string) {
	if m == nil {
		return
	}
	m.ingestions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) chunkIndexed() {
	if m == nil {
		return
	}
	m.chunksIndexed.Inc()
}

func (m *Metrics) query(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(outcome).Inc()
	m.queryDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) searchRetry() {
	if m == nil {
		return
	}
	m.searchRetries.Inc()
}

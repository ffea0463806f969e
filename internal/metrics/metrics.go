// Package metrics provides Prometheus metrics for indexing and search.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	FilesProcessed     prometheus.Counter
	FilesSkipped       *prometheus.CounterVec
	ChunksStored       prometheus.Counter
	EmbeddingsTotal    *prometheus.CounterVec
	IndexRuns          *prometheus.CounterVec
	IndexDuration      prometheus.Histogram
	SearchRequests     prometheus.Counter
	SearchCacheHits    prometheus.Counter
	CircuitBreakerOpen prometheus.Gauge
}

// New registers all metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FilesProcessed: f.NewCounter(prometheus.CounterOpts{
			Name: "repolens_files_processed_total",
			Help: "Files chunked, embedded and stored",
		}),
		FilesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "repolens_files_skipped_total",
			Help: "Files skipped during indexing by reason",
		}, []string{"reason"}),
		ChunksStored: f.NewCounter(prometheus.CounterOpts{
			Name: "repolens_chunks_stored_total",
			Help: "Index entries written to the vector store",
		}),
		EmbeddingsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "repolens_embeddings_total",
			Help: "Embeddings generated, by source (service or fallback)",
		}, []string{"source"}),
		IndexRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "repolens_index_runs_total",
			Help: "Index runs by outcome",
		}, []string{"outcome"}),
		IndexDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "repolens_index_duration_seconds",
			Help:    "Duration of index runs",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		SearchRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "repolens_search_requests_total",
			Help: "Search requests served",
		}),
		SearchCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "repolens_search_cache_hits_total",
			Help: "Search requests answered from the query cache",
		}),
		CircuitBreakerOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "repolens_embedding_breaker_open",
			Help: "1 while the embedding circuit breaker is open",
		}),
	}
}

func (m *Metrics) FileProcessed() {
	if m != nil {
		m.FilesProcessed.Inc()
	}
}

func (m *Metrics) FileSkipped(reason string) {
	if m != nil {
		m.FilesSkipped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) ChunkStored() {
	if m != nil {
		m.ChunksStored.Inc()
	}
}

// Embedding counts one generated embedding.
func (m *Metrics) Embedding(fallback bool) {
	if m == nil {
		return
	}
	source := "service"
	if fallback {
		source = "fallback"
	}
	m.EmbeddingsTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) IndexRun(success bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.IndexRuns.WithLabelValues(outcome).Inc()
	m.IndexDuration.Observe(d.Seconds())
}

func (m *Metrics) Search(cacheHit bool) {
	if m == nil {
		return
	}
	m.SearchRequests.Inc()
	if cacheHit {
		m.SearchCacheHits.Inc()
	}
}

func (m *Metrics) BreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitBreakerOpen.Set(1)
	} else {
		m.CircuitBreakerOpen.Set(0)
	}
}

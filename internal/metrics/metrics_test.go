package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Embedding(true)
	m.Embedding(true)
	m.Embedding(false)
	m.FileSkipped("filtered")
	m.Search(true)
	m.IndexRun(true, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EmbeddingsTotal.WithLabelValues("fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmbeddingsTotal.WithLabelValues("service")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesSkipped.WithLabelValues("filtered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchCacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexRuns.WithLabelValues("success")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.FileProcessed()
		m.FileSkipped("filtered")
		m.ChunkStored()
		m.Embedding(true)
		m.IndexRun(false, time.Second)
		m.Search(false)
		m.BreakerOpen(true)
	})
}

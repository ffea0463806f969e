package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"repolens/config"
	"repolens/internal/metrics"
	"repolens/internal/port"
)

func TestFallbackDeterminism(t *testing.T) {
	a := Fallback("hello")
	b := Fallback("hello")

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, Fallback("world"))

	for _, v := range a {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
	// sha256("hello") starts with "2cf2"
	assert.InDelta(t, float64('2')/255, a[0], 1e-12)
	assert.InDelta(t, float64('c')/255, a[1], 1e-12)
}

func hfServer(t *testing.T, status int, body interface{}, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req featureRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeneratorPrimary(t *testing.T) {
	srv := hfServer(t, http.StatusOK, []float64{0.1, 0.2, 0.3}, nil)
	g := NewGenerator(NewHuggingFaceClient(srv.URL, "mini", "test-key", time.Second))

	emb := g.Generate(context.Background(), "func main() {}")

	assert.False(t, emb.Fallback)
	assert.Equal(t, "mini", emb.Model)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, emb.Vector)
}

func TestGeneratorFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   interface{}
	}{
		{"server error", http.StatusInternalServerError, map[string]string{"error": "boom"}},
		{"unauthorized", http.StatusUnauthorized, map[string]string{"error": "bad token"}},
		{"not an array", http.StatusOK, map[string]string{"error": "Model is loading"}},
		{"empty array", http.StatusOK, []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := hfServer(t, tt.status, tt.body, nil)
			m := metrics.New(prometheus.NewRegistry())
			g := NewGenerator(NewHuggingFaceClient(srv.URL, "mini", "test-key", time.Second), WithMetrics(m))

			first := g.Generate(context.Background(), "hello")
			second := g.Generate(context.Background(), "hello")
			other := g.Generate(context.Background(), "world")

			assert.True(t, first.Fallback)
			assert.Equal(t, FallbackModel, first.Model)
			assert.Equal(t, Fallback("hello"), first.Vector)
			assert.Equal(t, first.Vector, second.Vector)
			assert.NotEqual(t, first.Vector, other.Vector)
			assert.Equal(t, 3.0, testutil.ToFloat64(m.EmbeddingsTotal.WithLabelValues("fallback")))
		})
	}
}

func TestGeneratorTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode([]float64{1})
	}))
	defer srv.Close()

	g := NewGenerator(NewHuggingFaceClient(srv.URL, "mini", "", 20*time.Millisecond))
	emb := g.Generate(context.Background(), "slow")

	assert.True(t, emb.Fallback)
	assert.Equal(t, Fallback("slow"), emb.Vector)
}

func TestGeneratorWithoutClient(t *testing.T) {
	emb := NewGenerator(nil).Generate(context.Background(), "hello")

	assert.True(t, emb.Fallback)
	assert.Equal(t, Fallback("hello"), emb.Vector)
}

func TestGeneratorBreakerShortCircuits(t *testing.T) {
	var hits int32
	srv := hfServer(t, http.StatusServiceUnavailable, map[string]string{"error": "down"}, &hits)

	g := NewGenerator(
		NewHuggingFaceClient(srv.URL, "mini", "test-key", time.Second),
		WithBreaker(config.BreakerConfig{Enabled: true, ConsecutiveFailures: 2, OpenTimeout: time.Minute}),
	)

	for i := 0; i < 5; i++ {
		emb := g.Generate(context.Background(), "hello")
		require.True(t, emb.Fallback)
	}

	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "open breaker must not reach the service")
}

type stubClient struct {
	vec []float64
	err error
}

func (s stubClient) Embed(context.Context, string) ([]float64, error) { return s.vec, s.err }
func (s stubClient) ModelName() string { return "stub" }

func TestGeneratorStubClient(t *testing.T) {
	g := NewGenerator(stubClient{err: port.ErrInvalidEmbedding})
	assert.True(t, g.Generate(context.Background(), "x").Fallback)

	g = NewGenerator(stubClient{vec: []float64{1, 0}}, WithBreaker(config.BreakerConfig{Enabled: true}))
	emb := g.Generate(context.Background(), "x")
	assert.False(t, emb.Fallback)
	assert.Equal(t, "stub", emb.Model)
}

func TestNewClient(t *testing.T) {
	cfg := config.EmbeddingConfig{URL: "http://localhost", Model: "m", Timeout: time.Second}

	cfg.Provider = "huggingface"
	assert.IsType(t, &HuggingFaceClient{}, NewClient(cfg, "k"))

	cfg.Provider = "openai"
	assert.IsType(t, &OpenAIClient{}, NewClient(cfg, "k"))

	cfg.Provider = "none"
	assert.Nil(t, NewClient(cfg, "k"))
	assert.True(t, NewGenerator(NewClient(cfg, "k")).Generate(context.Background(), "x").Fallback)
}

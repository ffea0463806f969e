package embedding

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"repolens/config"
	"repolens/internal/domain"
	"repolens/internal/metrics"
	"repolens/internal/port"
)

// Generator produces embeddings through a remote client and falls back to
// the content hash vector whenever the client cannot deliver one. Each
// text gets a single attempt.
type Generator struct {
	client  port.EmbeddingClient
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Generator)

// WithBreaker puts a circuit breaker in front of the client. While it is
// open every call goes straight to the fallback.
func WithBreaker(cfg config.BreakerConfig) Option {
	return func(g *Generator) {
		if !cfg.Enabled {
			return
		}
		failures := cfg.ConsecutiveFailures
		if failures == 0 {
			failures = 5
		}
		g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "embedding",
			MaxRequests: 1,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				g.logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
				g.metrics.BreakerOpen(to == gobreaker.StateOpen)
			},
		})
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGenerator builds a generator. A nil client means every embedding is
// a fallback embedding.
func NewGenerator(client port.EmbeddingClient, opts ...Option) *Generator {
	g := &Generator{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate never fails. Embedding.Fallback reports whether the vector
// came from the content hash.
func (g *Generator) Generate(ctx context.Context, text string) domain.Embedding {
	if g.client == nil {
		return g.fallback(text, "no embedding client configured", nil)
	}

	start := time.Now()
	vec, err := g.embed(ctx, text)
	if err != nil {
		return g.fallback(text, "embedding service failed", err)
	}

	g.metrics.Embedding(false)
	g.logger.Debug("embedding generated", "dim", len(vec), "elapsed", time.Since(start))
	return domain.Embedding{
		Vector: vec,
		Model:  g.client.ModelName(),
	}
}

func (g *Generator) embed(ctx context.Context, text string) ([]float64, error) {
	if g.breaker == nil {
		return g.client.Embed(ctx, text)
	}

	res, err := g.breaker.Execute(func() (interface{}, error) {
		return g.client.Embed(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	return res.([]float64), nil
}

func (g *Generator) fallback(text, reason string, err error) domain.Embedding {
	g.metrics.Embedding(true)
	if err != nil {
		g.logger.Warn(reason+", using fallback embedding", "error", err)
	} else {
		g.logger.Debug(reason + ", using fallback embedding")
	}
	return domain.Embedding{
		Vector:   Fallback(text),
		Model:    FallbackModel,
		Fallback: true,
	}
}

var _ port.Embedder = (*Generator)(nil)

// NewClient builds the primary client named by cfg.Provider. It returns nil
// for "none", leaving every embedding to the fallback.
func NewClient(cfg config.EmbeddingConfig, apiKey string) port.EmbeddingClient {
	switch cfg.Provider {
	case "huggingface":
		return NewHuggingFaceClient(cfg.URL, cfg.Model, apiKey, cfg.Timeout)
	case "openai":
		return NewOpenAIClient(cfg.URL, cfg.Model, apiKey, cfg.Timeout)
	default:
		return nil
	}
}

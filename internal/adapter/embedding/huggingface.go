package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"repolens/internal/port"
)

// HuggingFaceClient calls a feature-extraction inference pipeline.
type HuggingFaceClient struct {
	url    string
	model  string
	apiKey string
	client *http.Client
}

func NewHuggingFaceClient(url, model, apiKey string, timeout time.Duration) *HuggingFaceClient {
	return &HuggingFaceClient{
		url:    url,
		model:  model,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

type featureRequest struct {
	Inputs string `json:"inputs"`
}

func (c *HuggingFaceClient) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := postJSON(ctx, c.client, c.url, c.apiKey, featureRequest{Inputs: text})
	if err != nil {
		return nil, err
	}
	return parseFeatures(body)
}

func (c *HuggingFaceClient) ModelName() string {
	return c.model
}

// parseFeatures accepts a flat vector, or token-level vectors which are
// mean pooled into one. Anything else is rejected.
func parseFeatures(body []byte) ([]float64, error) {
	var flat []float64
	if err := json.Unmarshal(body, &flat); err == nil {
		if len(flat) == 0 {
			return nil, port.ErrEmptyResponse
		}
		return flat, nil
	}

	var tokens [][]float64
	if err := json.Unmarshal(body, &tokens); err == nil {
		return meanPool(tokens)
	}

	var batch [][][]float64
	if err := json.Unmarshal(body, &batch); err == nil && len(batch) > 0 {
		return meanPool(batch[0])
	}

	return nil, fmt.Errorf("%w: %s", port.ErrInvalidEmbedding, preview(body))
}

func meanPool(tokens [][]float64) ([]float64, error) {
	if len(tokens) == 0 || len(tokens[0]) == 0 {
		return nil, port.ErrEmptyResponse
	}

	dim := len(tokens[0])
	pooled := make([]float64, dim)
	for _, tok := range tokens {
		if len(tok) != dim {
			return nil, fmt.Errorf("%w: ragged token vectors", port.ErrInvalidEmbedding)
		}
		for i, v := range tok {
			pooled[i] += v
		}
	}
	for i := range pooled {
		pooled[i] /= float64(len(tokens))
	}
	return pooled, nil
}

var _ port.EmbeddingClient = (*HuggingFaceClient)(nil)

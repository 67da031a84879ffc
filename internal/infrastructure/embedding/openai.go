package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"HangarWatch/internal/config"
	"HangarWatch/internal/domain"
	"HangarWatch/internal/ports"
)

// OpenAIClient turns text into vectors through an OpenAI-compatible /v1/embeddings endpoint.
type OpenAIClient struct {
	endpoint string
	model    string
	apiKey   string
	http     *http.Client
}

var _ ports.Embedder = (*OpenAIClient)(nil)

// NewOpenAIClient creates a reusable HTTP client.
func NewOpenAIClient(cfg config.EmbeddingConfig) *OpenAIClient {
	return &OpenAIClient{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Model names the embedding model, used to scope cache keys.
func (c *OpenAIClient) Model() string {
	return c.model
}

type embeddingsRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed requests a single embedding. Newlines are flattened before sending.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.endpoint == "" || c.model == "" {
		return nil, domain.ProviderError("embed", errors.New("embedding client misconfigured"))
	}

	input := strings.ReplaceAll(text, "\n", " ")
	if strings.TrimSpace(input) == "" {
		return nil, domain.ValidationError("embed", errors.New("text is empty"))
	}

	var resp embeddingsResponse
	if err := c.post(ctx, "/v1/embeddings", embeddingsRequest{Model: c.model, Input: input}, &resp); err != nil {
		return nil, domain.ProviderError("embed", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, domain.ProviderError("embed", errors.New("response carried no embedding"))
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, f := range raw {
		vec[i] = float32(f)
	}
	return vec, nil
}

func (c *OpenAIClient) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

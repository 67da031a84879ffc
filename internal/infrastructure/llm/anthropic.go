package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"HangarWatch/internal/config"
	"HangarWatch/internal/domain"
	"HangarWatch/internal/ports"
)

// AnthropicClient implements ports.Oracle with the Anthropic Messages API.
type AnthropicClient struct {
	client      anthropic.Client
	model       string
	temperature float64
	maxTokens   int64
	configured  bool
}

var _ ports.Oracle = (*AnthropicClient)(nil)

// NewAnthropicClient builds a client from configuration. Extra request options are appended
// after the API key.
func NewAnthropicClient(cfg config.AnthropicConfig, opts ...option.RequestOption) *AnthropicClient {
	all := append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 200
	}
	return &AnthropicClient{
		client:      anthropic.NewClient(all...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		configured:  cfg.APIKey != "" && cfg.Model != "",
	}
}

// Complete sends prompt as a single user turn and concatenates the text blocks of the reply.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c == nil || !c.configured {
		return "", domain.ProviderError("anthropic message", errors.New("anthropic client misconfigured"))
	}

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", domain.ProviderError("anthropic message", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", domain.ProviderError("anthropic message", errors.New("response has no text content"))
	}
	return b.String(), nil
}

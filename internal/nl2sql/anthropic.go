package nl2sql

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
)

const (
	defaultAnthropicBaseURL   = "https://api.anthropic.com/v1"
	defaultAnthropicModel     = "claude-3-5-haiku-latest"
	defaultAnthropicMaxTokens = 1024
)

type AnthropicClient struct {
	client      *anthropic.Client
	model       string
	temperature float32
}

func NewAnthropicClient(cfg Config) (*AnthropicClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, &ConfigurationError{Provider: ProviderAnthropic}
	}
	client := anthropic.NewClient(apiKey,
		anthropic.WithBaseURL(cfg.baseURL(defaultAnthropicBaseURL)),
		anthropic.WithHTTPClient(&http.Client{Timeout: cfg.timeout()}),
	)
	return &AnthropicClient{
		client:      client,
		model:       cfg.model(defaultAnthropicModel),
		temperature: float32(cfg.Temperature),
	}, nil
}

func (c *AnthropicClient) Provider() Provider {
	return ProviderAnthropic
}

func (c *AnthropicClient) GenerateQuery(ctx context.Context, prompt string) (string, error) {
	temperature := c.temperature
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		MaxTokens:   defaultAnthropicMaxTokens,
		Temperature: &temperature,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("request anthropic message: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			text.WriteString(*block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", ErrEmptyResponse
	}
	return text.String(), nil
}

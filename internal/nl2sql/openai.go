package nl2sql

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultGroqBaseURL   = "https://api.groq.com/openai/v1"
	defaultGroqModel     = "llama3-70b-8192"
)

// chatCompletion covers every provider that speaks the OpenAI chat
// completions protocol.
type chatCompletion struct {
	provider    Provider
	client      *openai.Client
	model       string
	temperature float32
}

func newChatCompletion(provider Provider, cfg Config, baseURL, model string) (chatCompletion, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return chatCompletion{}, &ConfigurationError{Provider: provider}
	}
	clientCfg := openai.DefaultConfig(apiKey)
	clientCfg.BaseURL = cfg.baseURL(baseURL)
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.timeout()}
	return chatCompletion{
		provider:    provider,
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.model(model),
		temperature: float32(cfg.Temperature),
	}, nil
}

func (c chatCompletion) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("request %s chat completion: %w", c.provider, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

type OpenAIClient struct {
	chat chatCompletion
}

func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	chat, err := newChatCompletion(ProviderOpenAI, cfg, defaultOpenAIBaseURL, defaultOpenAIModel)
	if err != nil {
		return nil, err
	}
	return &OpenAIClient{chat: chat}, nil
}

func (c *OpenAIClient) Provider() Provider {
	return ProviderOpenAI
}

func (c *OpenAIClient) GenerateQuery(ctx context.Context, prompt string) (string, error) {
	return c.chat.generate(ctx, prompt)
}

// GroqClient talks to Groq through its OpenAI compatible endpoint.
type GroqClient struct {
	chat chatCompletion
}

func NewGroqClient(cfg Config) (*GroqClient, error) {
	chat, err := newChatCompletion(ProviderGroq, cfg, defaultGroqBaseURL, defaultGroqModel)
	if err != nil {
		return nil, err
	}
	return &GroqClient{chat: chat}, nil
}

func (c *GroqClient) Provider() Provider {
	return ProviderGroq
}

func (c *GroqClient) GenerateQuery(ctx context.Context, prompt string) (string, error) {
	return c.chat.generate(ctx, prompt)
}

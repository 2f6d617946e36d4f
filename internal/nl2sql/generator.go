package nl2sql

import (
	"context"
	"strings"
	"time"
)

// Generator turns a prompt into raw query text using a hosted language model.
// Implementations issue exactly one request per call.
type Generator interface {
	GenerateQuery(ctx context.Context, prompt string) (string, error)
	Provider() Provider
}

type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderGroq      Provider = "groq"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

func Providers() []Provider {
	return []Provider{ProviderGemini, ProviderGroq, ProviderOpenAI, ProviderAnthropic}
}

func ParseProvider(value string) (Provider, bool) {
	candidate := Provider(strings.ToLower(strings.TrimSpace(value)))
	for _, provider := range Providers() {
		if provider == candidate {
			return provider, true
		}
	}
	return "", false
}

// CredentialEnv is the environment variable holding the provider's API key.
func (p Provider) CredentialEnv() string {
	return strings.ToUpper(string(p)) + "_API_KEY"
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 60 * time.Second
	}
	return c.Timeout
}

func (c Config) model(fallback string) string {
	if model := strings.TrimSpace(c.Model); model != "" {
		return model
	}
	return fallback
}

func (c Config) baseURL(fallback string) string {
	if base := strings.TrimSpace(c.BaseURL); base != "" {
		return strings.TrimRight(base, "/")
	}
	return fallback
}

package nl2sql

import "strings"

// NewGenerator builds the client for provider. Credentials are checked here,
// once, and never re-read per call.
func NewGenerator(provider string, cfg Config) (Generator, error) {
	parsed, ok := ParseProvider(provider)
	if !ok {
		return nil, &UnknownProviderError{Name: provider}
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &ConfigurationError{Provider: parsed}
	}

	switch parsed {
	case ProviderGemini:
		return NewGeminiClient(cfg)
	case ProviderGroq:
		return NewGroqClient(cfg)
	case ProviderOpenAI:
		return NewOpenAIClient(cfg)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg)
	default:
		return nil, &UnknownProviderError{Name: provider}
	}
}

package nl2sql

import (
	"errors"
	"fmt"
)

var ErrEmptyResponse = errors.New("model returned an empty response")

// ConfigurationError is returned at construction time when a provider has no
// credential configured.
type ConfigurationError struct {
	Provider Provider
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("API key for %s is missing. Please set %s as an environment variable.", e.Provider, e.Provider.CredentialEnv())
}

type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("invalid provider: %q", e.Name)
}

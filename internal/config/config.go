package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Registry      RegistryConfig
	ObjectStore   ObjectStoreConfig
	Uploads       UploadsConfig
	AI            AIConfig
	Session       SessionConfig
	Render        RenderConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxUploadBytes int64
}

// RegistryConfig selects the dataset metadata registry. An empty DSN keeps
// metadata in process memory.
type RegistryConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// ObjectStoreConfig is optional. Uploads fall back to UploadsConfig.Dir when
// Endpoint is empty.
type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type UploadsConfig struct {
	Dir string
}

type AIConfig struct {
	Provider    string
	Temperature float64
	Timeout     time.Duration
	Providers   map[string]ProviderConfig
}

type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type SessionConfig struct {
	MaxTurns     int
	SnapshotRows int
	IdleTimeout  time.Duration
}

type RenderConfig struct {
	Mode string
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

// Provider credentials use the provider's conventional variable names rather
// than the DUCKPROMPT_ prefix.
var providerNames = []string{"gemini", "groq", "openai", "anthropic"}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("DUCKPROMPT_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid DUCKPROMPT_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	appliers := []func() error{
		func() error { return applyString(lookup, "DUCKPROMPT_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "DUCKPROMPT_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "DUCKPROMPT_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "DUCKPROMPT_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "DUCKPROMPT_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },
		func() error { return applyInt64(lookup, "DUCKPROMPT_HTTP_MAX_UPLOAD_BYTES", &cfg.HTTP.MaxUploadBytes) },
		func() error { return applyString(lookup, "DUCKPROMPT_REGISTRY_DSN", &cfg.Registry.DSN) },
		func() error { return applyInt(lookup, "DUCKPROMPT_REGISTRY_MAX_OPEN_CONNS", &cfg.Registry.MaxOpenConns) },
		func() error { return applyInt(lookup, "DUCKPROMPT_REGISTRY_MAX_IDLE_CONNS", &cfg.Registry.MaxIdleConns) },
		func() error {
			return applyDuration(lookup, "DUCKPROMPT_REGISTRY_CONN_MAX_IDLE_TIME", &cfg.Registry.ConnMaxIdleTime)
		},
		func() error {
			return applyDuration(lookup, "DUCKPROMPT_REGISTRY_CONN_MAX_LIFETIME", &cfg.Registry.ConnMaxLifetime)
		},
		func() error { return applyString(lookup, "DUCKPROMPT_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint) },
		func() error { return applyString(lookup, "DUCKPROMPT_OBJECTSTORE_REGION", &cfg.ObjectStore.Region) },
		func() error { return applyString(lookup, "DUCKPROMPT_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket) },
		func() error { return applyString(lookup, "DUCKPROMPT_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID) },
		func() error {
			return applyString(lookup, "DUCKPROMPT_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey)
		},
		func() error { return applyBool(lookup, "DUCKPROMPT_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL) },
		func() error { return applyString(lookup, "DUCKPROMPT_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix) },
		func() error {
			return applyBool(lookup, "DUCKPROMPT_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket)
		},
		func() error { return applyString(lookup, "DUCKPROMPT_UPLOAD_DIR", &cfg.Uploads.Dir) },
		func() error { return applyString(lookup, "DUCKPROMPT_AI_PROVIDER", &cfg.AI.Provider) },
		func() error { return applyFloat(lookup, "DUCKPROMPT_AI_TEMPERATURE", &cfg.AI.Temperature) },
		func() error { return applyDuration(lookup, "DUCKPROMPT_AI_TIMEOUT", &cfg.AI.Timeout) },
		func() error { return applyInt(lookup, "DUCKPROMPT_SESSION_MAX_TURNS", &cfg.Session.MaxTurns) },
		func() error { return applyInt(lookup, "DUCKPROMPT_SESSION_SNAPSHOT_ROWS", &cfg.Session.SnapshotRows) },
		func() error { return applyDuration(lookup, "DUCKPROMPT_SESSION_IDLE_TIMEOUT", &cfg.Session.IdleTimeout) },
		func() error { return applyString(lookup, "DUCKPROMPT_RENDER_MODE", &cfg.Render.Mode) },
		func() error { return applyBool(lookup, "DUCKPROMPT_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "DUCKPROMPT_LOG_LEVEL", &cfg.Observability.LogLevel) },
	}
	for _, apply := range appliers {
		if err := apply(); err != nil {
			return Config{}, err
		}
	}
	for _, name := range providerNames {
		if err := applyProvider(lookup, name, &cfg.AI); err != nil {
			return Config{}, err
		}
	}

	cfg.AI.Provider = strings.ToLower(cfg.AI.Provider)
	cfg.Render.Mode = strings.ToLower(cfg.Render.Mode)

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if _, ok := cfg.AI.Providers[cfg.AI.Provider]; !ok {
		return Config{}, fmt.Errorf("invalid DUCKPROMPT_AI_PROVIDER: %q", cfg.AI.Provider)
	}
	if cfg.Session.MaxTurns <= 0 {
		return Config{}, fmt.Errorf("DUCKPROMPT_SESSION_MAX_TURNS must be > 0")
	}
	switch cfg.Render.Mode {
	case "records", "table":
	default:
		return Config{}, fmt.Errorf("invalid DUCKPROMPT_RENDER_MODE: %q", cfg.Render.Mode)
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "duckprompt-api"},
		HTTP: HTTPConfig{
			Address:        ":5000",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   90 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxUploadBytes: 64 << 20,
		},
		Registry: RegistryConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
		},
		ObjectStore: ObjectStoreConfig{
			Region:           "us-east-1",
			Bucket:           "duckprompt",
			Prefix:           "uploads",
			AutoCreateBucket: true,
		},
		Uploads: UploadsConfig{Dir: "public/uploads"},
		AI: AIConfig{
			Provider:    "gemini",
			Temperature: 0,
			Timeout:     60 * time.Second,
			Providers: map[string]ProviderConfig{
				"gemini":    {BaseURL: "https://generativelanguage.googleapis.com/v1beta", Model: "gemini-2.0-flash-exp"},
				"groq":      {BaseURL: "https://api.groq.com/openai/v1", Model: "llama3-70b-8192"},
				"openai":    {BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
				"anthropic": {BaseURL: "https://api.anthropic.com/v1", Model: "claude-3-5-haiku-latest"},
			},
		},
		Session: SessionConfig{
			MaxTurns:     5,
			SnapshotRows: 20,
			IdleTimeout:  30 * time.Minute,
		},
		Render: RenderConfig{Mode: "records"},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  false,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":15000"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Observability.LogJSON = true
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyProvider(lookup LookupFunc, name string, ai *AIConfig) error {
	provider := ai.Providers[name]
	prefix := strings.ToUpper(name)
	if err := applyString(lookup, prefix+"_API_KEY", &provider.APIKey); err != nil {
		return err
	}
	if err := applyString(lookup, prefix+"_BASE_URL", &provider.BaseURL); err != nil {
		return err
	}
	if err := applyString(lookup, prefix+"_MODEL", &provider.Model); err != nil {
		return err
	}
	ai.Providers[name] = provider
	return nil
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}

package observability

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/duckmesh/duckprompt/internal/config"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// NewLogger returns the service logger. Every entry carries the service
// identity and the backends the process was started with, so a log line can be
// tied to the provider that generated its SQL.
func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	options := &slog.HandlerOptions{Level: cfg.Observability.LogLevel}
	var handler slog.Handler = slog.NewTextHandler(writer, options)
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, options)
	}
	return slog.New(handler).With(serviceAttrs(cfg)...)
}

func serviceAttrs(cfg config.Config) []any {
	attrs := []any{
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
	}
	if provider := strings.TrimSpace(cfg.AI.Provider); provider != "" {
		attrs = append(attrs, slog.String("ai_provider", provider))
		if model := cfg.AI.Providers[provider].Model; model != "" {
			attrs = append(attrs, slog.String("ai_model", model))
		}
	}
	if cfg.Render.Mode != "" {
		attrs = append(attrs, slog.String("render_mode", cfg.Render.Mode))
	}
	registry := "memory"
	if cfg.Registry.DSN != "" {
		registry = "postgres"
	}
	datasets := "local"
	if cfg.ObjectStore.Endpoint != "" {
		datasets = "s3"
	}
	return append(attrs, slog.String("registry", registry), slog.String("dataset_store", datasets))
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	value, _ := ctx.Value(traceIDKey).(string)
	return value
}

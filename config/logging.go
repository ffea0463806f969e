package config

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds the process logger from the logging section.
func NewLogger(cfg LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogWithLogger logs the resolved settings. Credentials are referenced by
// environment variable name only and never appear here.
func LogWithLogger(c *Config, logger *slog.Logger) {
	logger.Info("Config: store", "backend", c.Store.Backend)
	logger.Info("Config: lock", "backend", c.Lock.Backend)
	logger.Info("Config: embedding",
		"provider", c.Embedding.Provider,
		"model", c.Embedding.Model,
		"breaker", c.Embedding.Breaker.Enabled,
	)
	logger.Info("Config: index",
		"workers", c.Index.Workers,
		"window", c.Index.WindowSize,
		"stride", c.Index.WindowStride,
		"go_ast", c.Index.GoAST,
	)
}

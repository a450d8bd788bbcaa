// Package logging configures the process slog logger and carries it
// through contexts.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu            sync.Mutex
	defaultLogger *slog.Logger
)

// Options selects the handler. Format is "text" or "json".
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// New builds a logger. Debug level also records source locations.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level := ParseLevel(opts.Level)
	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}
	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	return slog.New(handler)
}

// Init installs a logger built from opts as the process default.
// An empty Level falls back to ENOUGH_LOG_LEVEL.
func Init(opts Options) *slog.Logger {
	if opts.Level == "" {
		opts.Level = os.Getenv("ENOUGH_LOG_LEVEL")
	}
	l := New(opts)
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	slog.SetDefault(l)
	return l
}

// ParseLevel converts a level name to slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Default returns the configured logger, initializing one on first use.
func Default() *slog.Logger {
	mu.Lock()
	l := defaultLogger
	mu.Unlock()
	if l == nil {
		return Init(Options{})
	}
	return l
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type contextKey string

const (
	loggerKey   contextKey = "logger"
	importIDKey contextKey = "import_id"
)

// WithLogger stores a logger in ctx.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithImportID tags ctx with the ID of the running import.
func WithImportID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, importIDKey, id)
}

// ImportIDFromContext returns the import ID, or "".
func ImportIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(importIDKey).(string); ok {
		return id
	}
	return ""
}

// FromContext returns the logger stored in ctx, or the default logger.
// The import ID is attached when present.
func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(loggerKey).(*slog.Logger)
	if !ok {
		l = Default()
	}
	if id := ImportIDFromContext(ctx); id != "" {
		l = l.With("import_id", id)
	}
	return l
}

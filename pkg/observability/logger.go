package observability

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Log output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// LoggerConfig controls the root logger handed to every subsystem.
type LoggerConfig struct {
	// Level is a logrus level name ("debug", "info", "warn", "error").
	Level string

	// Format selects FormatText or FormatJSON. Text is the default for
	// interactive use; JSON for log shipping.
	Format string

	// Output defaults to os.Stderr so plugin diagnostics never mix with
	// the wrapped tool's stdout.
	Output io.Writer
}

// NewLogger builds the root logger. Invalid config falls back to info-level
// text logging rather than failing startup.
func NewLogger(config LoggerConfig) *logrus.Logger {
	log := logrus.New()

	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	log.SetOutput(output)

	level := logrus.InfoLevel
	if config.Level != "" {
		parsed, err := logrus.ParseLevel(config.Level)
		if err == nil {
			level = parsed
		} else {
			log.Warnf("Unknown log level %q, using info", config.Level)
		}
	}
	log.SetLevel(level)

	switch config.Format {
	case FormatJSON:
		log.SetFormatter(&logrus.JSONFormatter{})
	case FormatText, "":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		log.Warnf("Unknown log format %q, using text", config.Format)
	}

	return log
}

// ParseLevel validates a level name before it reaches NewLogger, so flag
// parsing can reject typos instead of silently downgrading to info.
func ParseLevel(level string) (string, error) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return "", fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return parsed.String(), nil
}

// contextKey is the type for context keys
type contextKey string

const (
	// InvocationIDKey is the context key for the tool invocation ID
	InvocationIDKey contextKey = "invocation_id"
	// CommandKey is the context key for the wrapped command name
	CommandKey contextKey = "command"
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
)

// WithInvocationID adds an invocation ID to the context
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, InvocationIDKey, id)
}

// GetInvocationID retrieves the invocation ID from context
func GetInvocationID(ctx context.Context) string {
	if id, ok := ctx.Value(InvocationIDKey).(string); ok {
		return id
	}
	return ""
}

// WithCommand adds the wrapped command name to the context
func WithCommand(ctx context.Context, command string) context.Context {
	return context.WithValue(ctx, CommandKey, command)
}

// GetCommand retrieves the wrapped command name from context
func GetCommand(ctx context.Context) string {
	if command, ok := ctx.Value(CommandKey).(string); ok {
		return command
	}
	return ""
}

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, log *logrus.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, log)
}

// GetLogger retrieves the logger from context, or a default one
func GetLogger(ctx context.Context) *logrus.Logger {
	if log, ok := ctx.Value(LoggerKey).(*logrus.Logger); ok {
		return log
	}
	return logrus.New()
}

// FromContext returns an entry carrying the invocation ID and command from
// the context, so every log line of one run can be correlated.
func FromContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(GetLogger(ctx))

	if id := GetInvocationID(ctx); id != "" {
		entry = entry.WithField("invocation_id", id)
	}

	if command := GetCommand(ctx); command != "" {
		entry = entry.WithField("command", command)
	}

	return entry
}

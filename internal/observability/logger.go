// Package observability provides structured logging with redaction, turn and
// request ID propagation, and OpenTelemetry tracing for the coach.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/goccy/go-json"
)

// Logger wraps slog.Logger with redaction and turn ID support.
type Logger struct {
	*slog.Logger
	redactor *Redactor
}

// LoggerConfig contains configuration for the logger.
type LoggerConfig struct {
	Level      slog.Level
	Output     io.Writer
	AddSource  bool
	JSONFormat bool
}

// ParseLevel maps a config string to a slog level. Unknown values are INFO.
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

// NewLogger creates a logger whose handler redacts every string, error and
// raw JSON value it writes, so Slog() callers are covered as well.
func NewLogger(cfg LoggerConfig, redactor *Redactor) *Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}
	if redactor != nil {
		opts.ReplaceAttr = func(_ []string, a slog.Attr) slog.Attr {
			return redactor.redactAttr(a)
		}
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler
	if cfg.JSONFormat {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &Logger{
		Logger:   slog.New(handler),
		redactor: redactor,
	}
}

// Wrap adapts an existing slog.Logger. A nil logger wraps slog.Default().
func Wrap(l *slog.Logger, redactor *Redactor) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{Logger: l, redactor: redactor}
}

// FromContext returns a logger carrying the turn and request IDs found in ctx.
func (l *Logger) FromContext(ctx context.Context) *Logger {
	var args []any
	if id := TurnIDFromContext(ctx); id != "" {
		args = append(args, "turn_id", id)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		args = append(args, "request_id", id)
	}
	if len(args) == 0 {
		return l
	}
	return l.WithFields(args...)
}

// WithFields returns a logger with additional fields.
func (l *Logger) WithFields(args ...any) *Logger {
	return &Logger{
		Logger:   l.Logger.With(args...),
		redactor: l.redactor,
	}
}

// RedactedInfo logs at INFO level with redacted message.
func (l *Logger) RedactedInfo(msg string, args ...any) {
	l.Logger.Info(l.redactMsg(msg), l.redactArgs(args)...)
}

// RedactedError logs at ERROR level with redacted message.
func (l *Logger) RedactedError(msg string, args ...any) {
	l.Logger.Error(l.redactMsg(msg), l.redactArgs(args)...)
}

// RedactedWarn logs at WARN level with redacted message.
func (l *Logger) RedactedWarn(msg string, args ...any) {
	l.Logger.Warn(l.redactMsg(msg), l.redactArgs(args)...)
}

func (l *Logger) redactMsg(msg string) string {
	if l.redactor == nil {
		return msg
	}
	return l.redactor.Redact(msg)
}

func (l *Logger) redactArgs(args []any) []any {
	if l.redactor == nil {
		return args
	}

	result := make([]any, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case string:
			result[i] = l.redactor.Redact(v)
		case error:
			result[i] = l.redactor.Redact(v.Error())
		case json.RawMessage:
			result[i] = l.redactor.RedactJSON(v)
		default:
			result[i] = arg
		}
	}
	return result
}

// Slog returns the underlying slog.Logger for compatibility.
func (l *Logger) Slog() *slog.Logger {
	return l.Logger
}

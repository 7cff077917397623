package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the structured logger.
type Options struct {
	ServiceName string
	Level       zerolog.Level
	Format      string // "json" (default) or "console"
	Output      io.Writer
}

type Logger struct {
	base *zerolog.Logger
}

type ctxKey struct{}

func New(opts Options) *Logger {
	if opts.Level == zerolog.NoLevel {
		opts.Level = zerolog.InfoLevel
	}
	var output io.Writer = opts.Output
	if output == nil {
		output = os.Stdout
	}
	if strings.EqualFold(opts.Format, "console") {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05",
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	logger := zerolog.
		New(output).
		With().
		Timestamp().
		Str("service", opts.ServiceName).
		Logger().
		Level(opts.Level)

	return &Logger{base: &logger}
}

// Nop returns a logger that discards everything. Used by tests and optional wiring.
func Nop() *Logger {
	l := zerolog.Nop()
	return &Logger{base: &l}
}

func ParseLevel(value string) zerolog.Level {
	levelString := strings.ToLower(strings.TrimSpace(value))
	if levelString == "" {
		return zerolog.InfoLevel
	}
	if lvl, err := zerolog.ParseLevel(levelString); err == nil {
		return lvl
	}
	return zerolog.InfoLevel
}

func (l *Logger) loggerFromContext(ctx context.Context) *zerolog.Logger {
	if l == nil {
		nop := zerolog.Nop()
		return &nop
	}
	if ctx == nil {
		return l.base
	}
	if entry, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok {
		return entry
	}
	return l.base
}

func (l *Logger) attach(ctx context.Context, entry zerolog.Logger) context.Context {
	entr := entry
	return context.WithValue(ctx, ctxKey{}, &entr)
}

func (l *Logger) WithChatID(ctx context.Context, chatID int64) context.Context {
	entry := l.loggerFromContext(ctx)
	return l.attach(ctx, entry.With().Int64("chat_id", chatID).Logger())
}

func (l *Logger) WithStage(ctx context.Context, stage string) context.Context {
	entry := l.loggerFromContext(ctx)
	return l.attach(ctx, entry.With().Str("stage", stage).Logger())
}

// Info logs msg with optional key/value pairs ("key", value, ...).
func (l *Logger) Info(ctx context.Context, msg string, kv ...any) {
	event := l.loggerFromContext(ctx).Info()
	if len(kv) > 0 {
		event = event.Fields(kv)
	}
	event.Msg(msg)
}

func (l *Logger) Debug(ctx context.Context, msg string, kv ...any) {
	event := l.loggerFromContext(ctx).Debug()
	if len(kv) > 0 {
		event = event.Fields(kv)
	}
	event.Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string, err error, kv ...any) {
	event := l.loggerFromContext(ctx).Warn()
	if err != nil {
		event = event.Err(err)
	}
	if len(kv) > 0 {
		event = event.Fields(kv)
	}
	event.Msg(msg)
}

func (l *Logger) Error(ctx context.Context, msg string, err error, kv ...any) {
	event := l.loggerFromContext(ctx).Error()
	if err != nil {
		event = event.Err(err)
	}
	if len(kv) > 0 {
		event = event.Fields(kv)
	}
	event.Str("stack", stackTrace()).Msg(msg)
}

func stackTrace() string {
	return strings.TrimSpace(string(debug.Stack()))
}

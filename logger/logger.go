// Package logger is the process-wide structured logger.
//
// Use the package functions (or the *Context variants, which pick up
// attributes stored in the context) instead of the standard `log` package.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	ErrorKey        = "error"
	ErrorVerboseKey = "error_verbose"
)

// Config is the logger configuration.
type Config struct {
	// Output format: "text" (default) or "json".
	Output string `yaml:"output" envconfig:"OUTPUT"`

	// Debug enables debug level and source locations.
	Debug bool `yaml:"debug" envconfig:"DEBUG"`
}

var (
	lvl = new(slog.LevelVar)

	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
)

func init() {
	lvl.Set(slog.LevelInfo)
	slog.SetDefault(logger)
}

// Init replaces the global logger according to cfg, writing to out
// (os.Stdout when nil).
func Init(cfg Config, out io.Writer) {
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: verboseErrors,
	}
	lvl.Set(slog.LevelInfo)
	if cfg.Debug {
		lvl.Set(slog.LevelDebug)
		opts.AddSource = true
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Output) {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		handler = slog.NewTextHandler(out, opts)
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// verboseErrors renders errors with their cockroachdb/errors detail
// (wrapping chain and stack) when debug logging is on.
func verboseErrors(_ []string, a slog.Attr) slog.Attr {
	if a.Key != ErrorKey || lvl.Level() > slog.LevelDebug {
		return a
	}
	if err, ok := a.Value.Any().(error); ok && err != nil {
		return slog.Group(ErrorKey,
			slog.String("message", err.Error()),
			slog.String(ErrorVerboseKey, fmt.Sprintf("%+v", err)),
		)
	}
	return a
}

// Err returns an attribute for err under the standard error key.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any(ErrorKey, err)
}

// With returns a logger carrying args on every record.
func With(args ...any) *slog.Logger {
	return logger.With(args...)
}

func Debug(msg string, args ...any) { logger.Debug(msg, args...) }
func Info(msg string, args ...any)  { logger.Info(msg, args...) }
func Warn(msg string, args ...any)  { logger.Warn(msg, args...) }

// Error logs at error level with err attached.
func Error(msg string, err error, args ...any) {
	logger.Error(msg, append(args, Err(err))...)
}

type loggerKey struct{}

// FromContext returns the logger stored in ctx, or the global logger.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return logger
}

// WithContext returns a context whose logger carries args.
func WithContext(ctx context.Context, args ...any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, FromContext(ctx).With(args...))
}

func DebugContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).DebugContext(ctx, msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).InfoContext(ctx, msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).WarnContext(ctx, msg, args...)
}

// ErrorContext logs at error level with err attached.
func ErrorContext(ctx context.Context, msg string, err error, args ...any) {
	FromContext(ctx).ErrorContext(ctx, msg, append(args, Err(err))...)
}

package fernlog

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
)

var (
	globalSDK *SDK
	once      sync.Once
)

// SDK wires the bridge into a process: it builds the handler from a
// Config, optionally installs it as the slog default (with the previous
// handler chained in), optionally captures the std log package, and
// undoes all of that on Shutdown.
type SDK struct {
	config   *Config
	handler  *Handler
	logger   *Logger
	provider log.LoggerProvider

	previous      *slog.Logger
	replaced      bool
	prevLogOutput func()
}

// Init initializes the process-wide SDK once and returns it. Later calls
// return the first instance regardless of config.
func Init(config *Config) *SDK {
	once.Do(func() {
		globalSDK = newSDK(config)
	})
	return globalSDK
}

func Get() *SDK {
	if globalSDK == nil {
		panic("fernlog SDK not initialized. Call Init() first")
	}
	return globalSDK
}

func newSDK(config *Config) *SDK {
	if config == nil {
		config = NewConfig()
	}

	provider := config.LoggerProvider
	if provider == nil {
		provider = global.GetLoggerProvider()
	}

	handler := NewHandler(config.ScopeName,
		WithLoggerProvider(provider),
		WithVersion(config.Version),
		WithSchemaURL(config.SchemaURL),
		WithSource(config.IncludeSource),
		WithLevelCheck(config.LevelCheck),
		WithMinLevel(config.MinLevel),
	)

	sdk := &SDK{
		config:   config,
		handler:  handler,
		provider: provider,
	}

	var root slog.Handler = handler
	if config.ReplaceSlog {
		if _, already := slog.Default().Handler().(*chainHandler); !already {
			previous := slog.Default()
			root = newChainHandler(handler, previous.Handler())
			slog.SetDefault(slog.New(root))
			sdk.previous = previous
			sdk.replaced = true

			if config.CaptureStdLog {
				sdk.captureStdLog()
			}
		}
	}
	sdk.logger = NewLogger(root)

	if config.Debug {
		fmt.Fprintf(os.Stderr, "fernlog SDK initialized, scope: %s\n", config.ScopeName)
	}

	return sdk
}

// captureStdLog routes the std log package through the bridge. Output is
// chained with the baseline handler, never with the replaced slog default,
// so a previous handler that itself writes via the log package cannot loop.
func (s *SDK) captureStdLog() {
	prevFlags := stdlog.Flags()
	prevOutput := stdlog.Writer()
	s.prevLogOutput = func() {
		stdlog.SetFlags(prevFlags)
		stdlog.SetOutput(prevOutput)
	}

	target := newChainHandler(s.handler, baselineHandler())
	stdlog.SetFlags(0)
	stdlog.SetOutput(slog.NewLogLogger(target, slog.LevelInfo).Writer())
}

// baselineHandler writes straight to stderr without consulting
// slog.Default, so it is safe to use underneath the replaced default.
func baselineHandler() slog.Handler {
	return slog.NewTextHandler(os.Stderr, nil)
}

func (s *SDK) Logger() *Logger {
	return s.logger
}

func (s *SDK) Handler() *Handler {
	return s.handler
}

// Shutdown restores the slog default and std log output replaced at Init
// and flushes the configured provider when it supports flushing. The SDK
// does not own the provider, so the provider itself is not shut down.
func (s *SDK) Shutdown(ctx context.Context) error {
	var errs []error

	if s.replaced && s.previous != nil {
		slog.SetDefault(s.previous)
		s.replaced = false
		if s.config.Debug {
			fmt.Fprintln(os.Stderr, "fernlog SDK: restored previous slog default")
		}
	}

	if s.prevLogOutput != nil {
		s.prevLogOutput()
		s.prevLogOutput = nil
	}

	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := s.provider.(flusher); ok {
		if err := f.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush logger provider: %w", err))
		}
	}

	return errors.Join(errs...)
}

// ContextWithTraceparent returns a context carrying the remote span
// context parsed from a W3C traceparent header, so records emitted with
// that context correlate with the upstream trace.
// The header format is: version-traceid-spanid-flags, for example
// 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01.
func (s *SDK) ContextWithTraceparent(ctx context.Context, traceparent string) (context.Context, error) {
	spanCtx, err := parseTraceparent(traceparent)
	if err != nil {
		return ctx, fmt.Errorf("invalid traceparent: %w", err)
	}
	return trace.ContextWithRemoteSpanContext(ctx, spanCtx), nil
}

func parseTraceparent(traceparent string) (trace.SpanContext, error) {
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 {
		return trace.SpanContext{}, fmt.Errorf("traceparent must have 4 parts separated by '-', got %d", len(parts))
	}

	if parts[0] != "00" {
		return trace.SpanContext{}, fmt.Errorf("unsupported traceparent version: %s", parts[0])
	}

	if len(parts[1]) != 32 {
		return trace.SpanContext{}, fmt.Errorf("trace ID must be 32 hex characters, got %d", len(parts[1]))
	}
	traceID, err := trace.TraceIDFromHex(parts[1])
	if err != nil {
		return trace.SpanContext{}, fmt.Errorf("invalid trace ID: %w", err)
	}

	if len(parts[2]) != 16 {
		return trace.SpanContext{}, fmt.Errorf("span ID must be 16 hex characters, got %d", len(parts[2]))
	}
	spanID, err := trace.SpanIDFromHex(parts[2])
	if err != nil {
		return trace.SpanContext{}, fmt.Errorf("invalid span ID: %w", err)
	}

	if len(parts[3]) != 2 {
		return trace.SpanContext{}, fmt.Errorf("trace flags must be 2 hex characters, got %d", len(parts[3]))
	}
	flagBits, err := strconv.ParseUint(parts[3], 16, 8)
	if err != nil {
		return trace.SpanContext{}, fmt.Errorf("invalid trace flags: %w", err)
	}

	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.TraceFlags(flagBits) & trace.FlagsSampled,
		Remote:     true,
	})
	if !spanCtx.IsValid() {
		return trace.SpanContext{}, fmt.Errorf("created span context is invalid")
	}

	return spanCtx, nil
}

// Package-level convenience functions using the initialized SDK.

func GetLogger() *Logger {
	return Get().Logger()
}

func Debug(msg string, args ...any) {
	Get().Logger().Debug(msg, args...)
}

func DebugContext(ctx context.Context, msg string, args ...any) {
	Get().Logger().DebugContext(ctx, msg, args...)
}

func Info(msg string, args ...any) {
	Get().Logger().Info(msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	Get().Logger().InfoContext(ctx, msg, args...)
}

func Warn(msg string, args ...any) {
	Get().Logger().Warn(msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	Get().Logger().WarnContext(ctx, msg, args...)
}

func Error(msg string, args ...any) {
	Get().Logger().Error(msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	Get().Logger().ErrorContext(ctx, msg, args...)
}

func With(args ...any) *Logger {
	return Get().Logger().With(args...)
}

func WithGroup(name string) *Logger {
	return Get().Logger().WithGroup(name)
}

func Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	Get().Logger().Log(ctx, level, msg, args...)
}

func LogAttrs(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	Get().Logger().LogAttrs(ctx, level, msg, attrs...)
}

func ContextWithTraceparent(ctx context.Context, traceparent string) (context.Context, error) {
	return Get().ContextWithTraceparent(ctx, traceparent)
}

func Shutdown(ctx context.Context) error {
	if globalSDK != nil {
		return globalSDK.Shutdown(ctx)
	}
	return nil
}

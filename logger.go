package fernlog

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Logger is a convenience front-end over a slog.Handler that stamps every
// record with the trace context found in the call's context, so bridged
// records correlate with spans even when the downstream pipeline does not
// do its own context extraction.
type Logger struct {
	handler slog.Handler
	attrs   []slog.Attr
}

func NewLogger(handler slog.Handler) *Logger {
	return &Logger{handler: handler}
}

// With returns a Logger with bound key/value pairs. Arguments follow the
// slog convention of alternating string keys and values; a pair with a
// non-string key is skipped, later pairs are kept.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		handler: l.handler,
		attrs:   appendPairs(l.attrs[:len(l.attrs):len(l.attrs)], args),
	}
}

func appendPairs(attrs []slog.Attr, args []any) []slog.Attr {
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			attrs = append(attrs, slog.Any(key, args[i+1]))
		}
	}
	return attrs
}

func (l *Logger) WithGroup(name string) *Logger {
	return &Logger{
		handler: l.handler.WithGroup(name),
		attrs:   l.attrs,
	}
}

func (l *Logger) Debug(msg string, args ...any) {
	l.emit(context.Background(), slog.LevelDebug, msg, args)
}

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, slog.LevelDebug, msg, args)
}

func (l *Logger) Info(msg string, args ...any) {
	l.emit(context.Background(), slog.LevelInfo, msg, args)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, slog.LevelInfo, msg, args)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.emit(context.Background(), slog.LevelWarn, msg, args)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, slog.LevelWarn, msg, args)
}

func (l *Logger) Error(msg string, args ...any) {
	l.emit(context.Background(), slog.LevelError, msg, args)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, slog.LevelError, msg, args)
}

func (l *Logger) Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	l.emit(ctx, level, msg, args)
}

func (l *Logger) LogAttrs(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	if !l.handler.Enabled(ctx, level) {
		return
	}
	r := l.newRecord(ctx, level, msg, 3)
	r.AddAttrs(attrs...)
	_ = l.handler.Handle(ctx, r)
}

func (l *Logger) Handler() slog.Handler {
	return l.handler
}

func (l *Logger) emit(ctx context.Context, level slog.Level, msg string, args []any) {
	if !l.handler.Enabled(ctx, level) {
		return
	}
	r := l.newRecord(ctx, level, msg, 4)
	r.AddAttrs(appendPairs(nil, args)...)
	_ = l.handler.Handle(ctx, r)
}

// newRecord builds a record attributed to the caller skip frames up the
// stack, with bound and trace-context attributes already applied.
func (l *Logger) newRecord(ctx context.Context, level slog.Level, msg string, skip int) slog.Record {
	var pcs [1]uintptr
	runtime.Callers(skip, pcs[:])

	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.AddAttrs(l.attrs...)
	r.AddAttrs(traceAttrs(ctx)...)
	return r
}

// traceAttrs extracts the span context, if any, as record attributes.
func traceAttrs(ctx context.Context) []slog.Attr {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return nil
	}
	attrs := []slog.Attr{
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	}
	if sc.IsSampled() {
		attrs = append(attrs, slog.Bool("sampled", true))
	}
	return attrs
}

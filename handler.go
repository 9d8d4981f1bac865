package fernlog

import (
	"context"
	"log/slog"
	"runtime"
	"slices"

	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// defaultScopeName identifies records emitted through a handler that was
// constructed without an explicit instrumentation scope name.
const defaultScopeName = "github.com/fernlog/go-sdk"

// Option configures a Handler or Sink.
type Option interface {
	apply(bridgeConfig) bridgeConfig
}

type optionFunc func(bridgeConfig) bridgeConfig

func (f optionFunc) apply(c bridgeConfig) bridgeConfig { return f(c) }

type bridgeConfig struct {
	provider   log.LoggerProvider
	version    string
	schemaURL  string
	source     bool
	levelCheck bool
	minLevel   slog.Leveler
}

func newBridgeConfig(options []Option) bridgeConfig {
	c := bridgeConfig{levelCheck: true}
	for _, opt := range options {
		c = opt.apply(c)
	}
	return c
}

func (c bridgeConfig) logger(name string) log.Logger {
	if name == "" {
		name = defaultScopeName
	}
	provider := c.provider
	if provider == nil {
		provider = global.GetLoggerProvider()
	}
	var opts []log.LoggerOption
	if c.version != "" {
		opts = append(opts, log.WithInstrumentationVersion(c.version))
	}
	if c.schemaURL != "" {
		opts = append(opts, log.WithSchemaURL(c.schemaURL))
	}
	return provider.Logger(name, opts...)
}

// WithLoggerProvider sets the provider records are emitted through. The
// default is the global logger provider at construction time.
func WithLoggerProvider(provider log.LoggerProvider) Option {
	return optionFunc(func(c bridgeConfig) bridgeConfig {
		c.provider = provider
		return c
	})
}

// WithVersion sets the instrumentation scope version.
func WithVersion(version string) Option {
	return optionFunc(func(c bridgeConfig) bridgeConfig {
		c.version = version
		return c
	})
}

// WithSchemaURL sets the instrumentation scope schema URL.
func WithSchemaURL(schemaURL string) Option {
	return optionFunc(func(c bridgeConfig) bridgeConfig {
		c.schemaURL = schemaURL
		return c
	})
}

// WithSource records the caller's file, line and function as attributes on
// every emitted record.
func WithSource(include bool) Option {
	return optionFunc(func(c bridgeConfig) bridgeConfig {
		c.source = include
		return c
	})
}

// WithLevelCheck controls the enablement fast path. When enabled (the
// default) the backing logger is asked whether a severity is enabled before
// any record is built; when disabled every record is forwarded
// unconditionally.
func WithLevelCheck(enabled bool) Option {
	return optionFunc(func(c bridgeConfig) bridgeConfig {
		c.levelCheck = enabled
		return c
	})
}

// WithMinLevel sets a static level floor checked before the backing logger
// is consulted. A nil leveler (the default) applies no floor.
func WithMinLevel(level slog.Leveler) Option {
	return optionFunc(func(c bridgeConfig) bridgeConfig {
		c.minLevel = level
		return c
	})
}

// sourceAttrs resolves a program counter into source-location attributes.
func sourceAttrs(pc uintptr) []log.KeyValue {
	frames := runtime.CallersFrames([]uintptr{pc})
	frame, _ := frames.Next()
	if frame.File == "" {
		return nil
	}
	return []log.KeyValue{
		log.String(string(semconv.CodeFilepathKey), frame.File),
		log.Int64(string(semconv.CodeLineNumberKey), int64(frame.Line)),
		log.String(string(semconv.CodeFunctionKey), frame.Function),
	}
}

type group struct {
	name  string
	attrs []log.KeyValue
}

// Handler is a slog.Handler that forwards every record it receives to an
// OpenTelemetry log.Logger. It holds no mutable state: WithAttrs and
// WithGroup return copies, so a single Handler is safe for concurrent use
// by any number of goroutines.
type Handler struct {
	logger        log.Logger
	levelCheck    bool
	includeSource bool
	minLevel      slog.Leveler

	// attrs are prerendered attributes added before the first open group;
	// groups carries the open groups in order with their own attributes.
	attrs  []log.KeyValue
	groups []group
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler returns a Handler emitting through the instrumentation scope
// name. An empty name falls back to the bridge's own identity.
func NewHandler(name string, options ...Option) *Handler {
	cfg := newBridgeConfig(options)
	return &Handler{
		logger:        cfg.logger(name),
		levelCheck:    cfg.levelCheck,
		includeSource: cfg.source,
		minLevel:      cfg.minLevel,
	}
}

// Enabled reports whether a record at level would be emitted. The static
// floor is consulted first so disabled records cost no allocation; the
// backing logger is only queried when the level check is active.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.minLevel != nil && level < h.minLevel.Level() {
		return false
	}
	if !h.levelCheck {
		return true
	}
	return h.logger.Enabled(ctx, log.EnabledParameters{Severity: convertLevel(level)})
}

// Handle converts one facade record into exactly one OpenTelemetry record
// and submits it. Duplicate attribute keys are forwarded in order; a
// downstream processor that deduplicates keeps the last value. Handle never
// returns an error: value mismatches are coerced, not dropped, so logging
// cannot become a failure source for the host application.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	h.logger.Emit(ctx, h.convertRecord(r))
	return nil
}

func (h *Handler) convertRecord(r slog.Record) log.Record {
	var rec log.Record
	rec.SetTimestamp(r.Time)
	rec.SetBody(log.StringValue(r.Message))
	sev := convertLevel(r.Level)
	rec.SetSeverity(sev)
	rec.SetSeverityText(severityText(sev))

	if h.includeSource && r.PC != 0 {
		rec.AddAttributes(sourceAttrs(r.PC)...)
	}

	rec.AddAttributes(h.attrs...)

	if len(h.groups) == 0 {
		kvs := make([]log.KeyValue, 0, r.NumAttrs())
		r.Attrs(func(a slog.Attr) bool {
			kvs = appendAttr(kvs, a)
			return true
		})
		rec.AddAttributes(kvs...)
		return rec
	}

	// Record attributes belong to the innermost open group. Fold the groups
	// inside-out into nested map values, eliding groups that end up empty.
	last := len(h.groups) - 1
	kvs := make([]log.KeyValue, 0, len(h.groups[last].attrs)+r.NumAttrs())
	kvs = append(kvs, h.groups[last].attrs...)
	r.Attrs(func(a slog.Attr) bool {
		kvs = appendAttr(kvs, a)
		return true
	})
	for i := last; i > 0; i-- {
		if len(kvs) == 0 {
			kvs = slices.Clone(h.groups[i-1].attrs)
			continue
		}
		nested := log.KeyValue{Key: h.groups[i].name, Value: log.MapValue(kvs...)}
		kvs = append(slices.Clone(h.groups[i-1].attrs), nested)
	}
	if len(kvs) > 0 {
		rec.AddAttributes(log.KeyValue{Key: h.groups[0].name, Value: log.MapValue(kvs...)})
	}
	return rec
}

// WithAttrs returns a copy of the handler with the attributes prerendered
// into the innermost open group.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	kvs := make([]log.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		kvs = appendAttr(kvs, a)
	}
	if len(kvs) == 0 {
		return h
	}
	h2 := *h
	if len(h2.groups) > 0 {
		h2.groups = slices.Clone(h2.groups)
		i := len(h2.groups) - 1
		h2.groups[i].attrs = append(slices.Clone(h2.groups[i].attrs), kvs...)
	} else {
		h2.attrs = append(slices.Clone(h2.attrs), kvs...)
	}
	return &h2
}

// WithGroup returns a copy of the handler with an open group of the given
// name. An empty name returns the receiver unchanged.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.groups = append(slices.Clone(h2.groups), group{name: name})
	return &h2
}

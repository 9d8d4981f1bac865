package fernlog

import (
	"context"
	"runtime"
	"slices"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/log"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Sink is a logr.LogSink that forwards records to an OpenTelemetry
// log.Logger. It shares the Handler's conversion core and concurrency
// model: WithValues and WithName return copies, the sink itself is
// immutable after construction.
type Sink struct {
	cfg    bridgeConfig
	name   string
	logger log.Logger
	attrs  []log.KeyValue
	depth  int
}

var _ logr.LogSink = (*Sink)(nil)

// NewSink returns a Sink emitting through the instrumentation scope name.
func NewSink(name string, options ...Option) *Sink {
	cfg := newBridgeConfig(options)
	return &Sink{
		cfg:    cfg,
		name:   name,
		logger: cfg.logger(name),
	}
}

// NewLogr returns a logr.Logger backed by a Sink.
func NewLogr(name string, options ...Option) logr.Logger {
	return logr.New(NewSink(name, options...))
}

// Init receives runtime information from the logr frontend.
func (s *Sink) Init(info logr.RuntimeInfo) {
	s.depth = info.CallDepth
}

// Enabled reports whether a record at the given verbosity would be
// emitted. The static floor is consulted first, then the backing logger
// when the level check is active; with the check disabled every record
// past the floor is forwarded.
func (s *Sink) Enabled(level int) bool {
	sev := convertVerbosity(level)
	if s.cfg.minLevel != nil && sev < convertLevel(s.cfg.minLevel.Level()) {
		return false
	}
	if !s.cfg.levelCheck {
		return true
	}
	return s.logger.Enabled(context.Background(), log.EnabledParameters{Severity: sev})
}

// Info emits one record at the severity mapped from the verbosity level.
func (s *Sink) Info(level int, msg string, keysAndValues ...any) {
	s.emit(convertVerbosity(level), msg, nil, keysAndValues)
}

// Error emits one record at error severity. The error, when present, is
// attached under the semantic-convention exception message key.
func (s *Sink) Error(err error, msg string, keysAndValues ...any) {
	s.emit(log.SeverityError, msg, err, keysAndValues)
}

func (s *Sink) emit(sev log.Severity, msg string, err error, keysAndValues []any) {
	var rec log.Record
	rec.SetBody(log.StringValue(msg))
	rec.SetSeverity(sev)
	rec.SetSeverityText(severityText(sev))
	if s.cfg.source {
		// Skip emit, Info/Error, and the frames the logr frontend
		// declared at Init to reach the original call site.
		var pcs [1]uintptr
		runtime.Callers(3+s.depth, pcs[:])
		if pcs[0] != 0 {
			rec.AddAttributes(sourceAttrs(pcs[0])...)
		}
	}
	rec.AddAttributes(s.attrs...)
	if err != nil {
		rec.AddAttributes(log.String(string(semconv.ExceptionMessageKey), err.Error()))
	}
	rec.AddAttributes(convertKeyValues(keysAndValues)...)
	s.logger.Emit(context.Background(), rec)
}

// WithValues returns a copy of the sink with additional bound attributes.
func (s *Sink) WithValues(keysAndValues ...any) logr.LogSink {
	s2 := *s
	s2.attrs = append(slices.Clone(s.attrs), convertKeyValues(keysAndValues)...)
	return &s2
}

// WithName returns a copy of the sink whose scope name carries the given
// suffix, logr-style, joined with "/".
func (s *Sink) WithName(name string) logr.LogSink {
	s2 := *s
	if s2.name != "" {
		s2.name = s2.name + "/" + name
	} else {
		s2.name = name
	}
	s2.logger = s2.cfg.logger(s2.name)
	return &s2
}

// convertVerbosity maps logr verbosity onto severities: V(0) is INFO and
// each verbosity step moves one severity down, clamped at TRACE. Higher
// verbosity always maps to a lower severity, preserving ordering.
func convertVerbosity(v int) log.Severity {
	sev := log.SeverityInfo - log.Severity(v)
	if sev < log.SeverityTrace {
		sev = log.SeverityTrace
	}
	return sev
}

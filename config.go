package fernlog

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"go.opentelemetry.io/otel/log"
)

// Config controls SDK initialization. Zero values are filled from the
// FERNLOG_* environment by NewConfig; the With* methods override.
type Config struct {
	// ScopeName is the instrumentation scope name attached to every
	// record emitted through the SDK's handler.
	ScopeName string
	Version   string
	SchemaURL string

	Debug bool

	// ReplaceSlog installs the bridge as the slog default at Init and
	// restores the previous default at Shutdown.
	ReplaceSlog bool
	// CaptureStdLog routes the standard library log package through the
	// bridge as well.
	CaptureStdLog bool

	// LevelCheck enables the enablement fast path: the backing logger is
	// asked whether a severity is enabled before a record is built.
	LevelCheck    bool
	IncludeSource bool
	// MinLevel is a static floor applied before the backing logger is
	// consulted. Nil applies no floor.
	MinLevel slog.Leveler

	// LoggerProvider overrides the global provider. Mainly for tests and
	// embedders that manage their own pipeline.
	LoggerProvider log.LoggerProvider
}

func NewConfig() *Config {
	cfg := &Config{
		ScopeName:     os.Getenv("FERNLOG_SCOPE_NAME"),
		Version:       os.Getenv("FERNLOG_SCOPE_VERSION"),
		Debug:         envBool("FERNLOG_DEBUG", false),
		ReplaceSlog:   envBool("FERNLOG_REPLACE_SLOG", true),
		CaptureStdLog: envBool("FERNLOG_CAPTURE_STDLOG", false),
		LevelCheck:    envBool("FERNLOG_LEVEL_CHECK", true),
		IncludeSource: envBool("FERNLOG_INCLUDE_SOURCE", false),
	}

	if s := os.Getenv("FERNLOG_MIN_LEVEL"); s != "" {
		if level, err := ParseLevel(s); err == nil {
			cfg.MinLevel = level
		}
	}

	return cfg
}

func (c *Config) WithScopeName(name string) *Config {
	c.ScopeName = name
	return c
}

func (c *Config) WithVersion(version string) *Config {
	c.Version = version
	return c
}

func (c *Config) WithSchemaURL(schemaURL string) *Config {
	c.SchemaURL = schemaURL
	return c
}

func (c *Config) WithDebug(debug bool) *Config {
	c.Debug = debug
	return c
}

func (c *Config) WithReplaceSlog(replace bool) *Config {
	c.ReplaceSlog = replace
	return c
}

func (c *Config) WithCaptureStdLog(capture bool) *Config {
	c.CaptureStdLog = capture
	return c
}

func (c *Config) WithLevelCheck(enabled bool) *Config {
	c.LevelCheck = enabled
	return c
}

func (c *Config) WithIncludeSource(include bool) *Config {
	c.IncludeSource = include
	return c
}

func (c *Config) WithMinLevel(level slog.Leveler) *Config {
	c.MinLevel = level
	return c
}

func (c *Config) WithLoggerProvider(provider log.LoggerProvider) *Config {
	c.LoggerProvider = provider
	return c
}

// ParseLevel parses a slog level name such as "debug" or "WARN+2".
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("unrecognized level: %q", s)
	}
	return level, nil
}

func envBool(key string, defaultValue bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return defaultValue
	}
	return v
}

package fernlog

import (
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/log"
)

func TestSinkInfo(t *testing.T) {
	rec := &recorder{}
	logger := NewLogr("logrtest", WithLoggerProvider(rec))

	logger.Info("reconciled", "object", "ns/name", "attempt", 2)

	if rec.len() != 1 {
		t.Fatalf("expected 1 record, got %d", rec.len())
	}
	got := rec.last(t)
	if got.Body().AsString() != "reconciled" {
		t.Errorf("body = %q, want %q", got.Body().AsString(), "reconciled")
	}
	if got.Severity() != log.SeverityInfo {
		t.Errorf("severity = %v, want %v", got.Severity(), log.SeverityInfo)
	}

	attrs := recordAttrs(got)
	if v, ok := attrs["object"]; !ok || !v.Equal(log.StringValue("ns/name")) {
		t.Errorf("object = %v, want ns/name", v)
	}
	if v, ok := attrs["attempt"]; !ok || !v.Equal(log.Int64Value(2)) {
		t.Errorf("attempt = %v, want 2", v)
	}
}

func TestSinkVerbosityMapping(t *testing.T) {
	tests := []struct {
		v    int
		want log.Severity
	}{
		{0, log.SeverityInfo},
		{1, log.SeverityDebug4},
		{4, log.SeverityDebug},
		{8, log.SeverityTrace},
		{100, log.SeverityTrace},
	}
	for _, tt := range tests {
		if got := convertVerbosity(tt.v); got != tt.want {
			t.Errorf("convertVerbosity(%d) = %v, want %v", tt.v, got, tt.want)
		}
	}

	// Higher verbosity must never map to a higher severity.
	prev := convertVerbosity(0)
	for v := 1; v <= 12; v++ {
		sev := convertVerbosity(v)
		if sev > prev {
			t.Fatalf("severity increased at verbosity %d: %v -> %v", v, prev, sev)
		}
		prev = sev
	}
}

func TestSinkVerbositySeverity(t *testing.T) {
	rec := &recorder{}
	logger := NewLogr("logrtest", WithLoggerProvider(rec))

	logger.V(1).Info("chatty")

	got := rec.last(t)
	if got.Severity() != log.SeverityDebug4 {
		t.Errorf("severity = %v, want %v", got.Severity(), log.SeverityDebug4)
	}
}

func TestSinkError(t *testing.T) {
	rec := &recorder{}
	logger := NewLogr("logrtest", WithLoggerProvider(rec))

	logger.Error(errors.New("connect refused"), "sync failed", "retries", 3)

	got := rec.last(t)
	if got.Severity() != log.SeverityError {
		t.Errorf("severity = %v, want %v", got.Severity(), log.SeverityError)
	}
	if got.SeverityText() != "ERROR" {
		t.Errorf("severity text = %q, want ERROR", got.SeverityText())
	}

	attrs := recordAttrs(got)
	if v, ok := attrs["exception.message"]; !ok || !v.Equal(log.StringValue("connect refused")) {
		t.Errorf("exception.message = %v, want connect refused", v)
	}
	if v, ok := attrs["retries"]; !ok || !v.Equal(log.Int64Value(3)) {
		t.Errorf("retries = %v, want 3", v)
	}
}

func TestSinkErrorNilTolerated(t *testing.T) {
	rec := &recorder{}
	logger := NewLogr("logrtest", WithLoggerProvider(rec))

	logger.Error(nil, "failed without cause")

	attrs := recordAttrs(rec.last(t))
	if _, ok := attrs["exception.message"]; ok {
		t.Error("nil error should not produce an exception attribute")
	}
}

func TestSinkWithValues(t *testing.T) {
	rec := &recorder{}
	logger := NewLogr("logrtest", WithLoggerProvider(rec))

	bound := logger.WithValues("component", "scheduler")
	bound.Info("bound attrs carried")
	logger.Info("original unchanged")

	if rec.len() != 2 {
		t.Fatalf("expected 2 records, got %d", rec.len())
	}
	first := recordAttrs(rec.records[0])
	if v, ok := first["component"]; !ok || !v.Equal(log.StringValue("scheduler")) {
		t.Errorf("component = %v, want scheduler", v)
	}
	second := recordAttrs(rec.records[1])
	if _, ok := second["component"]; ok {
		t.Error("bound attribute leaked onto the original logger")
	}
}

func TestSinkWithName(t *testing.T) {
	rec := &recorder{}
	logger := NewLogr("parent", WithLoggerProvider(rec))

	logger.WithName("child").Info("named")

	if rec.scope != "parent/child" {
		t.Errorf("scope = %q, want %q", rec.scope, "parent/child")
	}
}

func TestSinkEnablement(t *testing.T) {
	t.Run("disabled verbosity emits nothing", func(t *testing.T) {
		rec := &recorder{
			enabledFn: func(p log.EnabledParameters) bool {
				return p.Severity >= log.SeverityInfo
			},
		}
		logger := NewLogr("logrtest", WithLoggerProvider(rec))

		logger.V(2).Info("dropped")
		if rec.len() != 0 {
			t.Errorf("expected no records, got %d", rec.len())
		}
	})

	t.Run("level check off forwards unconditionally", func(t *testing.T) {
		rec := &recorder{
			enabledFn: func(log.EnabledParameters) bool { return false },
		}
		logger := NewLogr("logrtest",
			WithLoggerProvider(rec), WithLevelCheck(false))

		logger.V(2).Info("forwarded anyway")
		if rec.len() != 1 {
			t.Errorf("expected 1 record, got %d", rec.len())
		}
		if rec.enabledCalls != 0 {
			t.Errorf("expected no enablement queries, got %d", rec.enabledCalls)
		}
	})

	t.Run("static floor short-circuits the provider", func(t *testing.T) {
		rec := &recorder{}
		logger := NewLogr("logrtest",
			WithLoggerProvider(rec),
			WithMinLevel(slog.LevelWarn),
			WithLevelCheck(false))

		logger.Info("below floor")
		if rec.len() != 0 {
			t.Errorf("expected no records below the floor, got %d", rec.len())
		}
		if rec.enabledCalls != 0 {
			t.Errorf("floor check should not query the provider, got %d queries", rec.enabledCalls)
		}

		logger.Error(errors.New("boom"), "errors bypass the verbosity gate")
		if rec.len() != 1 {
			t.Errorf("expected 1 error record, got %d", rec.len())
		}
	})

	t.Run("floor admits matching verbosity", func(t *testing.T) {
		rec := &recorder{}
		logger := NewLogr("logrtest",
			WithLoggerProvider(rec), WithMinLevel(slog.LevelInfo))

		logger.Info("at floor")
		if rec.len() != 1 {
			t.Errorf("expected 1 record at the floor, got %d", rec.len())
		}

		logger.V(1).Info("below floor")
		if rec.len() != 1 {
			t.Errorf("expected the verbose record to be dropped, got %d", rec.len())
		}
	})
}

func TestSinkSource(t *testing.T) {
	rec := &recorder{}
	logger := NewLogr("logrtest", WithLoggerProvider(rec), WithSource(true))

	logger.Info("locate me")

	attrs := recordAttrs(rec.last(t))
	file, ok := attrs["code.filepath"]
	if !ok {
		t.Fatal("code.filepath attribute missing")
	}
	if !strings.HasSuffix(file.AsString(), "logr_test.go") {
		t.Errorf("code.filepath = %q, want this test file", file.AsString())
	}
	if line, ok := attrs["code.lineno"]; !ok || line.AsInt64() <= 0 {
		t.Errorf("code.lineno = %v, want a positive line", line)
	}
}

// Package fernlog bridges Go logging facades into the OpenTelemetry log
// pipeline.
//
// Records emitted through log/slog, github.com/go-logr/logr, or the
// standard library log package are translated one-for-one into
// OpenTelemetry log records and handed to a log.Logger for processing;
// export, batching, and transport stay with the configured OpenTelemetry
// SDK. Severity mapping is monotonic, attributes are coerced rather than
// dropped, and an enablement fast path (on by default) avoids building
// records the backend would discard.
//
// Use NewHandler or NewLogr directly against a provider, or Init to
// install the bridge as the process-wide slog default with sensible
// defaults from the FERNLOG_* environment.
package fernlog

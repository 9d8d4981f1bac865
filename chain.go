package fernlog

import (
	"context"
	"log/slog"
)

// chainHandler fans each record out to the bridge and to whatever handler
// was installed before the SDK took over the slog default, so console
// output keeps working while records also reach the OpenTelemetry
// pipeline.
type chainHandler struct {
	bridge   slog.Handler
	fallback slog.Handler
}

func newChainHandler(bridge, fallback slog.Handler) slog.Handler {
	if fallback == nil {
		return bridge
	}
	return &chainHandler{bridge: bridge, fallback: fallback}
}

func (h *chainHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.bridge.Enabled(ctx, level) || h.fallback.Enabled(ctx, level)
}

func (h *chainHandler) Handle(ctx context.Context, r slog.Record) error {
	var bridgeErr, fallbackErr error
	if h.bridge.Enabled(ctx, r.Level) {
		bridgeErr = h.bridge.Handle(ctx, r.Clone())
	}
	if h.fallback.Enabled(ctx, r.Level) {
		fallbackErr = h.fallback.Handle(ctx, r)
	}
	if bridgeErr != nil {
		return bridgeErr
	}
	return fallbackErr
}

func (h *chainHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &chainHandler{
		bridge:   h.bridge.WithAttrs(attrs),
		fallback: h.fallback.WithAttrs(attrs),
	}
}

func (h *chainHandler) WithGroup(name string) slog.Handler {
	return &chainHandler{
		bridge:   h.bridge.WithGroup(name),
		fallback: h.fallback.WithGroup(name),
	}
}

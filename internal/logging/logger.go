// Package logging provides the thin slog wrapper shared by every
// component in this module: debug/trace/error helpers that no-op when
// no logger is configured, following the convention of the network
// stack this server is built on top of.
package logging

import (
	"context"
	"log/slog"
)

// LevelTrace sits below slog.LevelDebug for very high-volume events
// (per-byte, per-poll-wakeup) that are rarely wanted even in a debug run.
const LevelTrace = slog.LevelDebug - 4

// Logger wraps an optional *slog.Logger. A zero Logger is safe to use
// and every method is a no-op.
type Logger struct {
	L *slog.Logger
}

// New wraps l. l may be nil.
func New(l *slog.Logger) Logger { return Logger{L: l} }

func (lg Logger) enabled(lvl slog.Level) bool {
	return lg.L != nil && lg.L.Handler().Enabled(context.Background(), lvl)
}

func (lg Logger) logAttrs(lvl slog.Level, msg string, attrs ...slog.Attr) {
	if lg.L == nil {
		return
	}
	lg.L.LogAttrs(context.Background(), lvl, msg, attrs...)
}

func (lg Logger) Trace(msg string, attrs ...slog.Attr) { lg.logAttrs(LevelTrace, msg, attrs...) }
func (lg Logger) Debug(msg string, attrs ...slog.Attr) { lg.logAttrs(slog.LevelDebug, msg, attrs...) }
func (lg Logger) Info(msg string, attrs ...slog.Attr)  { lg.logAttrs(slog.LevelInfo, msg, attrs...) }
func (lg Logger) Warn(msg string, attrs ...slog.Attr)  { lg.logAttrs(slog.LevelWarn, msg, attrs...) }
func (lg Logger) Error(msg string, attrs ...slog.Attr) { lg.logAttrs(slog.LevelError, msg, attrs...) }

// TraceEnabled reports whether trace-level logging would actually emit,
// letting callers skip building expensive attrs on the hot path.
func (lg Logger) TraceEnabled() bool { return lg.enabled(LevelTrace) }

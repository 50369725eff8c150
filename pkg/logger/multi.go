package logger

import (
	"context"
	"log/slog"
)

// multiHandler fans records out to several handlers, e.g. pretty output on
// stderr and JSON in a server log file.
type multiHandler struct {
	handlers []slog.Handler
}

// Multi dispatches every record to the handlers of loggers.
func Multi(loggers ...*slog.Logger) *slog.Logger {
	m := &multiHandler{}
	for _, l := range loggers {
		m.handlers = append(m.handlers, l.Handler())
	}
	return slog.New(m)
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle gives each enabled handler its own clone of r and reports the
// first failure after all of them ran.
func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *multiHandler) each(fn func(slog.Handler) slog.Handler) *multiHandler {
	out := &multiHandler{handlers: make([]slog.Handler, 0, len(m.handlers))}
	for _, h := range m.handlers {
		out.handlers = append(out.handlers, fn(h))
	}
	return out
}

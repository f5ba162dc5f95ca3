// Package logger wraps log/slog with an optional in-memory capture sink so a
// run can hand its own warnings to the operator's issue.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Capture collects formatted log lines at or above a minimum level while the
// surrounding handler keeps writing to its normal output. It is created at
// run start and read once at run end; there is no global capture state.
type Capture struct {
	mu    sync.Mutex
	min   slog.Level
	lines []string
}

// NewCapture returns a sink that records messages at min level or above.
func NewCapture(min slog.Level) *Capture {
	return &Capture{min: min}
}

// String returns the captured lines joined by newlines.
func (c *Capture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.lines, "\n")
}

func (c *Capture) record(r slog.Record) {
	if r.Level < c.min {
		return
	}
	var b strings.Builder
	b.WriteString(r.Level.String())
	b.WriteString(" ")
	b.WriteString(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		b.WriteString(" ")
		b.WriteString(a.String())
		return true
	})
	c.mu.Lock()
	c.lines = append(c.lines, b.String())
	c.mu.Unlock()
}

// teeHandler forwards records to an inner handler and mirrors them into a
// Capture.
type teeHandler struct {
	inner   slog.Handler
	capture *Capture
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level) || level >= h.capture.min
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	h.capture.record(r)
	if h.inner.Enabled(ctx, r.Level) {
		return h.inner.Handle(ctx, r)
	}
	return nil
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{inner: h.inner.WithAttrs(attrs), capture: h.capture}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{inner: h.inner.WithGroup(name), capture: h.capture}
}

// New builds a JSON logger writing to stderr at the given level, teed into
// the capture sink when one is provided.
func New(level slog.Level, capture *Capture) *slog.Logger {
	var h slog.Handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	if capture != nil {
		h = &teeHandler{inner: h, capture: capture}
	}
	return slog.New(h)
}

// ParseLevel maps a config string onto a slog level, defaulting to warn.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Package testsupport holds helpers shared by package tests.
package testsupport

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
)

// Frames is a manual domain.FrameSource. Callbacks run only when Tick is called.
type Frames struct {
	queued   []func()
	requests int
}

// NewFrames returns an idle frame source
func NewFrames() *Frames {
	return &Frames{}
}

// RequestFrame queues fn for the next Tick
func (f *Frames) RequestFrame(fn func()) {
	f.requests++
	f.queued = append(f.queued, fn)
}

// Tick runs the callbacks queued before the call. Callbacks queued while
// ticking run on the next Tick. Returns the number of callbacks run.
func (f *Frames) Tick() int {
	batch := f.queued
	f.queued = nil
	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Pending returns the number of callbacks waiting for a Tick
func (f *Frames) Pending() int { return len(f.queued) }

// Requests returns the total number of RequestFrame calls
func (f *Frames) Requests() int { return f.requests }

// LogRecord is a captured slog record flattened for assertions
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogCapture is a slog.Handler that keeps every record in memory
type LogCapture struct {
	mu      *sync.Mutex
	records *[]LogRecord
	attrs   []slog.Attr
}

// NewLogCapture returns a capture handler and a logger writing to it
func NewLogCapture() (*LogCapture, *slog.Logger) {
	h := &LogCapture{mu: &sync.Mutex{}, records: &[]LogRecord{}}
	return h, slog.New(h)
}

func (h *LogCapture) Enabled(context.Context, slog.Level) bool { return true }

func (h *LogCapture) Handle(_ context.Context, r slog.Record) error {
	rec := LogRecord{Level: r.Level, Message: r.Message, Attrs: make(map[string]any)}
	for _, a := range h.attrs {
		rec.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs[a.Key] = a.Value.Any()
		return true
	})
	h.mu.Lock()
	*h.records = append(*h.records, rec)
	h.mu.Unlock()
	return nil
}

func (h *LogCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &LogCapture{mu: h.mu, records: h.records, attrs: merged}
}

func (h *LogCapture) WithGroup(string) slog.Handler { return h }

// Records returns a copy of everything logged so far
func (h *LogCapture) Records() []LogRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]LogRecord, len(*h.records))
	copy(out, *h.records)
	return out
}

// Find returns records at level whose message equals msg
func (h *LogCapture) Find(level slog.Level, msg string) []LogRecord {
	var out []LogRecord
	for _, r := range h.Records() {
		if r.Level == level && r.Message == msg {
			out = append(out, r)
		}
	}
	return out
}

// NopLogger discards all output
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestLogger writes through t.Log so output only shows for failing tests
func TestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type testWriter struct{ t testing.TB }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

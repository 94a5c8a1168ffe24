// Package testutil provides test utilities for structured logging.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// NewTestLogger returns a logger that writes to t.Log().
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// NewCapturingLogger returns a logger whose records can be inspected after
// the code under test ran, in addition to being echoed to t.Log().
func NewCapturingLogger(t testing.TB) (*slog.Logger, *LogRecorder) {
	t.Helper()
	rec := &LogRecorder{}
	handler := capturingHandler{
		next: slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}),
		rec:  rec,
	}
	return slog.New(handler), rec
}

// LogRecorder collects emitted log records for assertions.
type LogRecorder struct {
	mu      sync.Mutex
	records []slog.Record
}

// Has reports whether a record at the given level contains substr in its
// message or in any attribute value.
func (r *LogRecorder) Has(level slog.Level, substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.Level != level {
			continue
		}
		if strings.Contains(rec.Message, substr) {
			return true
		}
		found := false
		rec.Attrs(func(a slog.Attr) bool {
			if strings.Contains(a.Value.String(), substr) {
				found = true
				return false
			}
			return true
		})
		if found {
			return true
		}
	}
	return false
}

// Len returns the number of captured records.
func (r *LogRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type capturingHandler struct {
	next slog.Handler
	rec  *LogRecorder
}

func (h capturingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h capturingHandler) Handle(ctx context.Context, record slog.Record) error {
	h.rec.mu.Lock()
	h.rec.records = append(h.rec.records, record.Clone())
	h.rec.mu.Unlock()
	return h.next.Handle(ctx, record)
}

func (h capturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return capturingHandler{next: h.next.WithAttrs(attrs), rec: h.rec}
}

func (h capturingHandler) WithGroup(name string) slog.Handler {
	return capturingHandler{next: h.next.WithGroup(name), rec: h.rec}
}

package logbuf

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestBufferRingOverwrite(t *testing.T) {
	buf := New(3)
	now := time.Now()

	for i := 0; i < 5; i++ {
		buf.Write(Entry{
			Time:    now.Add(time.Duration(i) * time.Second),
			Level:   "INFO",
			Message: "msg",
			Attrs:   map[string]any{"i": i},
		})
	}

	entries := buf.Query(time.Time{}, slog.LevelDebug, "", 0)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries (ring size), got %d", len(entries))
	}
	// Oldest surviving entries first: 2, 3, 4.
	if entries[0].Attrs["i"] != 2 || entries[2].Attrs["i"] != 4 {
		t.Fatalf("unexpected order: %v", entries)
	}
}

func TestBufferQuerySince(t *testing.T) {
	buf := New(10)
	now := time.Now()

	for i := 0; i < 5; i++ {
		buf.Write(Entry{Time: now.Add(time.Duration(i) * time.Second), Level: "INFO", Message: "msg"})
	}

	entries := buf.Query(now.Add(3*time.Second), slog.LevelDebug, "", 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries since t+3s, got %d", len(entries))
	}
}

func TestBufferQueryLevel(t *testing.T) {
	buf := New(10)
	now := time.Now()

	buf.Write(Entry{Time: now, Level: "DEBUG", Message: "debug"})
	buf.Write(Entry{Time: now, Level: "INFO", Message: "info"})
	buf.Write(Entry{Time: now, Level: "WARN", Message: "warn"})
	buf.Write(Entry{Time: now, Level: "ERROR", Message: "error"})

	entries := buf.Query(time.Time{}, slog.LevelWarn, "", 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries at WARN+, got %d", len(entries))
	}
	if entries[0].Message != "warn" || entries[1].Message != "error" {
		t.Fatalf("unexpected entries: %v", entries)
	}
}

func TestBufferQueryComponent(t *testing.T) {
	buf := New(10)
	now := time.Now()

	buf.Write(Entry{Time: now, Level: "INFO", Component: "engine", Message: "a"})
	buf.Write(Entry{Time: now, Level: "INFO", Component: "api", Message: "b"})
	buf.Write(Entry{Time: now, Level: "INFO", Component: "engine", Message: "c"})

	entries := buf.Query(time.Time{}, slog.LevelDebug, "engine", 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 engine entries, got %d", len(entries))
	}
}

func TestBufferQueryLimitKeepsNewest(t *testing.T) {
	buf := New(10)
	now := time.Now()

	for i := 0; i < 8; i++ {
		buf.Write(Entry{
			Time: now.Add(time.Duration(i) * time.Second), Level: "INFO",
			Message: "msg", Attrs: map[string]any{"i": i},
		})
	}

	entries := buf.Query(time.Time{}, slog.LevelDebug, "", 3)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[2].Attrs["i"] != 7 {
		t.Fatalf("expected newest entry last, got %v", entries[2].Attrs)
	}
}

func TestHandlerCaptures(t *testing.T) {
	buf := New(10)
	handler := NewHandler(slog.NewTextHandler(io.Discard, nil), buf)
	logger := slog.New(handler)

	logger.Info("hello", "key", "value")
	logger.Warn("warning")

	entries := buf.Query(time.Time{}, slog.LevelDebug, "", 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "hello" || entries[0].Attrs["key"] != "value" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
	if entries[1].Level != "WARN" {
		t.Fatalf("expected WARN level, got %q", entries[1].Level)
	}
}

func TestHandlerLiftsComponent(t *testing.T) {
	buf := New(10)
	handler := NewHandler(slog.NewTextHandler(io.Discard, nil), buf)
	logger := slog.New(handler).With("component", "engine")

	logger.Info("msg", "intent", "plan_info")

	entries := buf.Query(time.Time{}, slog.LevelDebug, "", 0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Component != "engine" {
		t.Fatalf("component not lifted: %+v", entries[0])
	}
	if _, ok := entries[0].Attrs["component"]; ok {
		t.Fatal("component should not remain in attrs")
	}
	if entries[0].Attrs["intent"] != "plan_info" {
		t.Fatalf("expected intent attr, got %v", entries[0].Attrs)
	}
}

func TestHandlerCapturesBelowInnerLevel(t *testing.T) {
	buf := New(10)
	// Inner handler only allows WARN+; the buffer still sees everything.
	inner := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn})
	handler := NewHandler(inner, buf)

	if !handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected handler to accept all levels")
	}

	logger := slog.New(handler)
	logger.Debug("debug msg")
	logger.Info("info msg")
	logger.Warn("warn msg")

	entries := buf.Query(time.Time{}, slog.LevelDebug, "", 0)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries in buffer, got %d", len(entries))
	}
}

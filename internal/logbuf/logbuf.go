// Package logbuf keeps the most recent log entries in memory so the
// diagnostics endpoint can serve them without a log aggregation stack.
package logbuf

import (
	"log/slog"
	"sync"
	"time"
)

// Entry is a single captured log record. Component is lifted out of the
// attrs because the diagnostics endpoint filters on it.
type Entry struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// Buffer is a thread-safe ring buffer for log entries.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	size    int
	pos     int
	count   int
}

// New creates a ring buffer that holds up to size entries.
func New(size int) *Buffer {
	return &Buffer{
		entries: make([]Entry, size),
		size:    size,
	}
}

// Write appends an entry, evicting the oldest once the buffer is full.
func (b *Buffer) Write(e Entry) {
	b.mu.Lock()
	b.entries[b.pos] = e
	b.pos = (b.pos + 1) % b.size
	if b.count < b.size {
		b.count++
	}
	b.mu.Unlock()
}

// Query returns entries matching the filters, oldest first. A zero since
// matches everything; an empty component matches all components; limit <= 0
// means no limit. When limit trims the result, the newest entries win.
func (b *Buffer) Query(since time.Time, minLevel slog.Level, component string, limit int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := 0
	if b.count == b.size {
		start = b.pos // oldest entry when full
	}

	var result []Entry
	for i := 0; i < b.count; i++ {
		e := b.entries[(start+i)%b.size]
		if !since.IsZero() && e.Time.Before(since) {
			continue
		}
		if ParseLevel(e.Level) < minLevel {
			continue
		}
		if component != "" && e.Component != component {
			continue
		}
		result = append(result, e)
	}

	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result
}

// ParseLevel converts a level string back to slog.Level. Unknown strings
// parse as INFO.
func ParseLevel(s string) slog.Level {
	switch s {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// internal/common/logging/buffer.go
// Severity-triggered log buffer
// Keeps the most recent records in memory and writes them out only when
// a record at or above the flush level arrives.

package logging

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

type bufferedRecord struct {
	handler slog.Handler
	record  slog.Record
}

// ring is a fixed-capacity FIFO; pushing into a full ring evicts the oldest entry.
type ring struct {
	mu      sync.Mutex
	entries []bufferedRecord
	start   int
	size    int
}

func (r *ring) push(e bufferedRecord) {
	capacity := len(r.entries)
	if r.size == capacity {
		r.entries[r.start] = e
		r.start = (r.start + 1) % capacity
		return
	}
	r.entries[(r.start+r.size)%capacity] = e
	r.size++
}

// drain hands every buffered record to its handler in arrival order and empties the ring.
func (r *ring) drain(ctx context.Context) error {
	var errs []error
	capacity := len(r.entries)
	for i := 0; i < r.size; i++ {
		idx := (r.start + i) % capacity
		e := r.entries[idx]
		if err := e.handler.Handle(ctx, e.record); err != nil {
			errs = append(errs, err)
		}
		r.entries[idx] = bufferedRecord{}
	}
	r.start, r.size = 0, 0
	return errors.Join(errs...)
}

// BufferHandler is a slog.Handler that holds up to capacity records and
// flushes them to the downstream handler when a record with level >= flushLevel
// is handled. Handlers derived with WithAttrs or WithGroup share the same ring.
type BufferHandler struct {
	next       slog.Handler
	flushLevel slog.Leveler
	ring       *ring
}

// NewBufferHandler wraps next. A capacity below 1 is treated as 1.
func NewBufferHandler(next slog.Handler, capacity int, flushLevel slog.Leveler) *BufferHandler {
	if capacity < 1 {
		capacity = 1
	}
	if flushLevel == nil {
		flushLevel = slog.LevelError
	}
	return &BufferHandler{
		next:       next,
		flushLevel: flushLevel,
		ring:       &ring{entries: make([]bufferedRecord, capacity)},
	}
}

func (h *BufferHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *BufferHandler) Handle(ctx context.Context, r slog.Record) error {
	h.ring.mu.Lock()
	defer h.ring.mu.Unlock()

	h.ring.push(bufferedRecord{handler: h.next, record: r.Clone()})
	if r.Level < h.flushLevel.Level() {
		return nil
	}
	return h.ring.drain(ctx)
}

func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BufferHandler{next: h.next.WithAttrs(attrs), flushLevel: h.flushLevel, ring: h.ring}
}

func (h *BufferHandler) WithGroup(name string) slog.Handler {
	return &BufferHandler{next: h.next.WithGroup(name), flushLevel: h.flushLevel, ring: h.ring}
}

// Flush writes out everything currently buffered regardless of level.
func (h *BufferHandler) Flush(ctx context.Context) error {
	h.ring.mu.Lock()
	defer h.ring.mu.Unlock()
	return h.ring.drain(ctx)
}

// Len reports how many records are waiting in the buffer.
func (h *BufferHandler) Len() int {
	h.ring.mu.Lock()
	defer h.ring.mu.Unlock()
	return h.ring.size
}

// Capacity reports the maximum number of records retained.
func (h *BufferHandler) Capacity() int {
	return len(h.ring.entries)
}

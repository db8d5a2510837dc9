package logger

import (
	"context"
	"log/slog"
	"sync"
)

// AsyncHandler buffers records and hands them to the next handler from a
// single background goroutine, so that slow sinks (network-backed log
// shippers) never block the caller's hot path.
type AsyncHandler struct {
	next     slog.Handler
	records  chan slog.Record
	dropOnFull bool
	once     sync.Once
	closed   chan struct{}
}

// NewAsyncHandler wraps next with an in-memory buffer of the given size.
// When dropOnFull is true, records are dropped instead of blocking the
// caller once the buffer fills; otherwise Handle blocks.
func NewAsyncHandler(next slog.Handler, bufferSize int, dropOnFull bool) *AsyncHandler {
	h := &AsyncHandler{
		next:       next,
		records:    make(chan slog.Record, bufferSize),
		dropOnFull: dropOnFull,
		closed:     make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *AsyncHandler) run() {
	for r := range h.records {
		_ = h.next.Handle(context.Background(), r)
	}
	close(h.closed)
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.dropOnFull {
		select {
		case h.records <- r.Clone():
		default:
			// buffer full: drop rather than stall the producer.
		}
		return nil
	}
	h.records <- r.Clone()
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), records: h.records, dropOnFull: h.dropOnFull, closed: h.closed}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), records: h.records, dropOnFull: h.dropOnFull, closed: h.closed}
}

// Close stops accepting new records and waits for the buffer to drain.
func (h *AsyncHandler) Close() {
	h.once.Do(func() {
		close(h.records)
	})
	<-h.closed
}

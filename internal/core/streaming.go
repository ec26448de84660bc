package core

// streaming.go provides sink wrappers used while a dataset is streamed out.
//
//   - CountingWriter: tracks bytes handed to the sink, so callers can tell
//     "nothing sent yet" (a clean error response is still possible) from
//     "output already started" (the response can only be aborted).
//   - ClosableWriter: lets a consumer stop a running generation by closing
//     the sink; later writes fail with ErrSinkClosed.

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

// ErrSinkClosed is returned by writes to a closed ClosableWriter.
var ErrSinkClosed = errors.New("sink closed")

// CountingWriter wraps an io.Writer to track bytes written.
type CountingWriter struct {
	writer io.Writer
	bytes  atomic.Int64
}

// NewCountingWriter wraps w.
func NewCountingWriter(w io.Writer) *CountingWriter {
	return &CountingWriter{writer: w}
}

// Write implements io.Writer.
func (w *CountingWriter) Write(p []byte) (int, error) {
	n, err := w.writer.Write(p)
	w.bytes.Add(int64(n))
	return n, err
}

// Flush flushes the wrapped writer when it supports flushing.
func (w *CountingWriter) Flush() error {
	return flushSink(w.writer)
}

// BytesWritten returns the number of bytes accepted by the wrapped writer.
func (w *CountingWriter) BytesWritten() int64 {
	return w.bytes.Load()
}

// ClosableWriter wraps an io.Writer and refuses writes once closed. Close
// may be called from another goroutine than the one writing.
type ClosableWriter struct {
	mu     sync.Mutex
	writer io.Writer
	closed bool
}

// NewClosableWriter wraps w.
func NewClosableWriter(w io.Writer) *ClosableWriter {
	return &ClosableWriter{writer: w}
}

// Write implements io.Writer.
func (w *ClosableWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, ErrSinkClosed
	}
	return w.writer.Write(p)
}

// Flush flushes the wrapped writer when it supports flushing.
func (w *ClosableWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrSinkClosed
	}
	return flushSink(w.writer)
}

// Close marks the writer closed. It does not close the wrapped writer.
func (w *ClosableWriter) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}

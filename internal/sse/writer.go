package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// Writer emits Server-Sent Event frames to one HTTP response: each chunk
// is written as `data: ` + JSON-encoded string + `\n\n`, flushed
// immediately so the client sees it without buffering delay.
//
// A keepalive goroutine may write to the same connection concurrently
// with the executor's emit calls, so all writes go through mu.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

// NewWriter sets the SSE response headers and wraps w. It returns an
// error if w does not support flushing (required for streaming).
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Writer{w: w, flusher: flusher}, nil
}

// WriteChunk emits one assistant-text frame.
func (sw *Writer) WriteChunk(chunk string) error {
	return sw.writeDataFrame(chunk)
}

// WriteError emits an error frame (its JSON string carries the error
// message); the caller closes the stream immediately after.
func (sw *Writer) WriteError(message string) error {
	return sw.writeDataFrame(message)
}

func (sw *Writer) writeDataFrame(payload string) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode stream frame: %w", err)
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()

	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", encoded); err != nil {
		return fmt.Errorf("write stream frame: %w", err)
	}
	sw.flusher.Flush()

	// Zero-byte write health check: detects a closed connection the
	// same way a failed keepalive would.
	if _, err := sw.w.Write(nil); err != nil {
		return fmt.Errorf("connection closed: %w", err)
	}
	return nil
}

// WriteKeepAlive writes an SSE comment line and flushes, satisfying
// KeepAliveWriter.
func (sw *Writer) WriteKeepAlive() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if _, err := fmt.Fprint(sw.w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("write keepalive failed: %w", err)
	}
	sw.flusher.Flush()
	if _, err := sw.w.Write(nil); err != nil {
		return fmt.Errorf("connection closed: %w", err)
	}
	return nil
}

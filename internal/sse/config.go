// Package sse implements the streaming transport the chat endpoints use:
// one `data: <JSON-encoded string>\n\n` frame per assistant chunk,
// with a ticker-based keepalive so intermediary proxies don't time
// out a long-suspended response while the executor waits on the
// oracle.
package sse

import "time"

// Config holds SSE connection tuning.
type Config struct {
	// KeepAliveInterval is how often to send a keepalive comment while
	// the stream is open, whether or not real frames were written.
	KeepAliveInterval time.Duration
}

// DefaultConfig mirrors the interval that's safe for most proxies and
// edge runtimes fronting a long-suspended streaming response.
func DefaultConfig() *Config {
	return &Config{KeepAliveInterval: 10 * time.Second}
}

package explorer

import (
	"time"

	"go.uber.org/zap"
)

const (
	LogBodyLimit = 4096
	SnippetLimit = 256
)

func truncate(b []byte, limit int) []byte {
	if len(b) <= limit {
		return b
	}
	out := make([]byte, 0, limit+len("... [truncated]"))
	out = append(out, b[:limit]...)
	return append(out, "... [truncated]"...)
}

func LogSafe(b []byte) []byte { return truncate(b, LogBodyLimit) }

// Snippet is the bounded part of a response body quoted in error messages.
func Snippet(b []byte) string { return string(truncate(b, SnippetLimit)) }

func LogRequest(logger *zap.Logger, method, url string, body []byte) time.Time {
	logger.Info("explorer_request",
		zap.String("method", method),
		zap.String("url", url),
		zap.ByteString("body", LogSafe(body)),
	)
	return time.Now()
}

func LogResponse(logger *zap.Logger, url string, status int, body []byte, started time.Time) {
	logger.Info("explorer_response",
		zap.String("url", url),
		zap.Int("status", status),
		zap.Int64("latency_ms", time.Since(started).Milliseconds()),
		zap.ByteString("body", LogSafe(body)),
	)
}

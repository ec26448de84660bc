// Package middleware provides HTTP middleware for the web server.
package middleware

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/DataForge/internal/logging"
	"github.com/dustin/go-humanize"
)

// Logger is an HTTP middleware that logs request details using structured logging.
//
// Log fields:
//   - method, path: the request line
//   - status: HTTP response status code
//   - size: response body size, human readable
//   - duration_ms: time until the handler returned
//   - ip: client IP (after TrustedRealIP)
//   - user_agent: client user agent string
//
// Generation downloads can run for a while, so the entry is written when
// the handler returns, not when the first byte goes out. A handler that
// aborts with http.ErrAbortHandler is logged as "request aborted" before
// the panic continues to net/http.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					logging.FromContext(r.Context()).Warn("request aborted", requestAttrs(r, ww, start)...)
				}
				panic(p)
			}
		}()
		next.ServeHTTP(ww, r)

		logger := logging.FromContext(r.Context())
		attrs := requestAttrs(r, ww, start)
		switch {
		case ww.status >= 500:
			logger.Error("request", attrs...)
		case ww.status >= 400:
			logger.Warn("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	})
}

func requestAttrs(r *http.Request, ww *responseWriter, start time.Time) []any {
	return []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status", ww.status,
		"size", humanize.Bytes(uint64(ww.bytes)),
		"duration_ms", time.Since(start).Milliseconds(),
		"ip", r.RemoteAddr,
		"user_agent", r.UserAgent(),
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code and
// body size.
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer, so
// streamed downloads can still flush.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

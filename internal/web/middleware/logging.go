package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"slices"
	"time"

	"go.uber.org/zap"

	webcontext "github.com/conduit-lang/dispatch/internal/web/context"
	"github.com/conduit-lang/dispatch/internal/web/response"
)

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	// Logger receives one entry per completed request
	Logger func(LogEntry)
	// SkipPaths is a list of paths to skip logging
	SkipPaths []string
}

// LogEntry represents a log entry for a request
type LogEntry struct {
	RequestID    string
	Method       string
	Path         string
	Operation    string
	Format       string
	StatusCode   int
	Duration     time.Duration
	BytesWritten int
	RemoteAddr   string
	UserAgent    string
}

// Fields renders the entry as zap fields
func (e LogEntry) Fields() []zap.Field {
	fields := []zap.Field{
		zap.String("request_id", e.RequestID),
		zap.String("method", e.Method),
		zap.String("path", e.Path),
		zap.Int("status", e.StatusCode),
		zap.Duration("duration", e.Duration),
		zap.Int("bytes", e.BytesWritten),
		zap.String("remote_addr", e.RemoteAddr),
	}
	if e.Operation != "" {
		fields = append(fields, zap.String("operation", e.Operation))
	}
	if e.Format != "" {
		fields = append(fields, zap.String("format", e.Format))
	}
	if e.UserAgent != "" {
		fields = append(fields, zap.String("user_agent", e.UserAgent))
	}
	return fields
}

// ZapLogger writes access log entries to logger. Server errors go to
// error level, client errors to warn, everything else to info.
func ZapLogger(logger *zap.Logger) func(LogEntry) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(entry LogEntry) {
		switch {
		case entry.StatusCode >= http.StatusInternalServerError:
			logger.Error("request completed", entry.Fields()...)
		case entry.StatusCode >= http.StatusBadRequest:
			logger.Warn("request completed", entry.Fields()...)
		default:
			logger.Info("request completed", entry.Fields()...)
		}
	}
}

// Logging creates a logging middleware writing to the global zap logger
func Logging() Middleware {
	return LoggingWithConfig(LoggingConfig{Logger: ZapLogger(zap.L())})
}

// LoggingWithConfig creates a logging middleware with custom configuration
func LoggingWithConfig(config LoggingConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(config.SkipPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			// handlers fill the slot once the route is known
			op := &webcontext.Operation{}
			r = r.WithContext(webcontext.SetOperation(r.Context(), op))

			next.ServeHTTP(rw, r)

			if config.Logger == nil {
				return
			}
			config.Logger(LogEntry{
				RequestID:    webcontext.GetRequestID(r.Context()),
				Method:       r.Method,
				Path:         r.URL.Path,
				Operation:    op.String(),
				Format:       rw.Header().Get(response.FormatHeader),
				StatusCode:   rw.statusCode,
				Duration:     time.Since(start),
				BytesWritten: rw.bytesWritten,
				RemoteAddr:   r.RemoteAddr,
				UserAgent:    r.UserAgent(),
			})
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code and bytes written
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	wroteHeader  bool
}

// WriteHeader captures the status code
func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.wroteHeader {
		rw.statusCode = statusCode
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

// Write captures bytes written
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// Unwrap exposes the underlying writer to http.ResponseController
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Hijack lets WebSocket upgrades take over the connection. The request is
// logged as 101 Switching Protocols.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying response writer does not support hijacking")
	}
	if !rw.wroteHeader {
		rw.statusCode = http.StatusSwitchingProtocols
		rw.wroteHeader = true
	}
	return hj.Hijack()
}

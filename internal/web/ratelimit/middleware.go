package ratelimit

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	webcontext "github.com/conduit-lang/dispatch/internal/web/context"
	"github.com/conduit-lang/dispatch/internal/web/response"
)

// Rate limit response headers
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// KeyFunc extracts the rate limit key from a request; "" skips limiting
type KeyFunc func(*http.Request) string

// MiddlewareConfig holds configuration for the rate limit middleware
type MiddlewareConfig struct {
	Limiter Limiter
	// KeyFunc defaults to ClientKey(false)
	KeyFunc KeyFunc
	// FailOpen lets requests through when the limiter errors
	FailOpen bool
	Logger   *zap.Logger
}

// ClientKey keys requests by authenticated subject, else by client IP.
// Forwarding headers are only honored when trustProxy is set.
func ClientKey(trustProxy bool) KeyFunc {
	return func(r *http.Request) string {
		if sub := webcontext.GetSubject(r.Context()); sub != "" {
			return "sub:" + sub
		}
		return "ip:" + clientIP(r, trustProxy)
	}
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware answers 429 once a client exhausts its limit
func Middleware(config MiddlewareConfig) func(http.Handler) http.Handler {
	if config.KeyFunc == nil {
		config.KeyFunc = ClientKey(false)
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := config.KeyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			info, err := config.Limiter.Allow(r.Context(), key)
			if err != nil {
				config.Logger.Error("rate limit check failed",
					zap.String("request_id", webcontext.GetRequestID(r.Context())),
					zap.String("key", key),
					zap.Error(err),
				)
				if config.FailOpen {
					next.ServeHTTP(w, r)
					return
				}
				response.RenderError(w, http.StatusServiceUnavailable, errors.New("Rate limiter unavailable"))
				return
			}

			h := w.Header()
			h.Set(HeaderLimit, strconv.Itoa(info.Limit))
			h.Set(HeaderRemaining, strconv.Itoa(info.Remaining))
			h.Set(HeaderReset, strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !info.Allowed {
				// round up so clients never retry early
				retryAfter := int64((info.RetryAfter + time.Second - 1) / time.Second)
				h.Set("Retry-After", strconv.FormatInt(max(retryAfter, 1), 10))
				config.Logger.Info("rate limit exceeded",
					zap.String("request_id", webcontext.GetRequestID(r.Context())),
					zap.String("key", key),
				)
				response.RenderError(w, http.StatusTooManyRequests, errors.New("Rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

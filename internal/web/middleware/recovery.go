package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	webcontext "github.com/conduit-lang/dispatch/internal/web/context"
	"github.com/conduit-lang/dispatch/internal/web/response"
)

// RecoveryConfig holds configuration for the recovery middleware
type RecoveryConfig struct {
	// EnableStackTrace determines whether to capture stack traces
	EnableStackTrace bool
	// Logger receives the recovered panic and the stack, if captured
	Logger func(*http.Request, error, []byte)
	// ResponseHandler writes the reply after a panic
	ResponseHandler func(http.ResponseWriter, *http.Request, any)
}

// DefaultRecoveryConfig returns the default recovery configuration
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		EnableStackTrace: true,
		Logger:           ZapPanicLogger(zap.L()),
		ResponseHandler:  defaultRecoveryResponse,
	}
}

// Recovery creates a middleware that recovers from panics
func Recovery() Middleware {
	return RecoveryWithConfig(DefaultRecoveryConfig())
}

// RecoveryWithConfig creates a recovery middleware with custom configuration
func RecoveryWithConfig(config RecoveryConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// let net/http abort the connection as it normally would
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				var stack []byte
				if config.EnableStackTrace {
					stack = debug.Stack()
				}
				if config.Logger != nil {
					config.Logger(r, panicError(rec), stack)
				}

				if config.ResponseHandler != nil {
					config.ResponseHandler(w, r, rec)
				} else {
					defaultRecoveryResponse(w, r, rec)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// ZapPanicLogger logs recovered panics at error level
func ZapPanicLogger(logger *zap.Logger) func(*http.Request, error, []byte) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(r *http.Request, err error, stack []byte) {
		fields := []zap.Field{
			zap.Error(err),
			zap.String("request_id", webcontext.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		}
		if len(stack) > 0 {
			fields = append(fields, zap.ByteString("stack", stack))
		}
		logger.Error("panic recovered", fields...)
	}
}

func defaultRecoveryResponse(w http.ResponseWriter, r *http.Request, _ any) {
	response.RenderError(w, http.StatusInternalServerError, errors.New("An unexpected error occurred"))
}

func panicError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", v)
}

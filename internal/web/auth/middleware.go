package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"go.uber.org/zap"

	webcontext "github.com/conduit-lang/dispatch/internal/web/context"
	"github.com/conduit-lang/dispatch/internal/web/response"
)

// TokenQueryParam carries the token for clients that cannot set headers,
// such as browser WebSocket connections.
const TokenQueryParam = "token"

type claimsKey struct{}

// ClaimsFrom returns the claims the middleware verified for this request
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok && claims != nil
}

// WithClaims attaches verified claims and their subject to ctx
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, claimsKey{}, claims)
	return webcontext.SetSubject(ctx, claims.Subject)
}

// Config holds configuration for the authentication middleware
type Config struct {
	Tokens *TokenService
	// PublicModules are served without a token
	PublicModules []string
	// Module extracts the requested module from the request
	Module func(r *http.Request) string
	Logger *zap.Logger
}

// ExtractToken returns the bearer token from the Authorization header or
// the token query parameter.
func ExtractToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", fmt.Errorf("%w: invalid authorization format", ErrUnauthorized)
		}
		return strings.TrimSpace(token), nil
	}
	if token := r.URL.Query().Get(TokenQueryParam); token != "" {
		return token, nil
	}
	return "", fmt.Errorf("%w: authorization required", ErrUnauthorized)
}

// Authenticate validates the request's token. Public modules pass with
// nil claims.
func (c *Config) Authenticate(r *http.Request) (*Claims, error) {
	module := ""
	if c.Module != nil {
		module = c.Module(r)
	}
	if module != "" && slices.Contains(c.PublicModules, module) {
		return nil, nil
	}

	token, err := ExtractToken(r)
	if err != nil {
		return nil, err
	}
	claims, err := c.Tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	if module != "" && !claims.Allows(module) {
		return nil, fmt.Errorf("%w: token does not grant module %q", ErrForbidden, module)
	}
	return claims, nil
}

// Middleware rejects requests without a valid token for the requested
// module: 401 for missing or invalid tokens, 403 for modules the token
// does not grant.
func Middleware(config Config) func(http.Handler) http.Handler {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := config.Authenticate(r)
			if err != nil {
				status := http.StatusUnauthorized
				message := "Authorization required"
				if errors.Is(err, ErrForbidden) {
					status = http.StatusForbidden
					message = "Module not granted"
				} else {
					w.Header().Set("WWW-Authenticate", `Bearer realm="dispatch"`)
				}
				config.Logger.Info("request rejected",
					zap.String("request_id", webcontext.GetRequestID(r.Context())),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Error(err),
				)
				response.RenderError(w, status, errors.New(message))
				return
			}

			if claims != nil {
				r = r.WithContext(WithClaims(r.Context(), claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

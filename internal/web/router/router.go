// Package router wires the AJAX endpoints and health check onto chi.
package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/conduit-lang/dispatch/internal/dispatch"
	"github.com/conduit-lang/dispatch/internal/web/auth"
	"github.com/conduit-lang/dispatch/internal/web/cache"
	"github.com/conduit-lang/dispatch/internal/web/middleware"
	"github.com/conduit-lang/dispatch/internal/web/ratelimit"
	"github.com/conduit-lang/dispatch/internal/web/response"
	"github.com/conduit-lang/dispatch/internal/web/websocket"
)

// Paths served by the router
const (
	AjaxPattern   = "/ajax/{module}"
	WebSocketPath = "/ws"
	TokenPath     = "/auth/token"
	HealthPath    = "/health"
)

// Config holds router configuration
type Config struct {
	Dispatcher *dispatch.Dispatcher
	Logger     *zap.Logger
	// Cache enables the rendered-output cache for GET /ajax requests
	Cache    cache.Cache
	CacheTTL time.Duration
	// MaxBodyBytes caps POST bodies (default 1 MiB)
	MaxBodyBytes int64
	// Tokens enables bearer authentication; modules in PublicModules
	// stay open over HTTP
	Tokens        *auth.TokenService
	PublicModules []string
	// TokenExchange serves POST /auth/token when set
	TokenExchange *auth.ExchangeHandler
	// WebSocket serves AJAX calls over GET /ws when set
	WebSocket *websocket.Handler
	// RateLimiter throttles /ajax and /ws per client when set
	RateLimiter ratelimit.Limiter
	// TrustProxy keys anonymous clients by X-Forwarded-For
	TrustProxy bool
}

// Router manages HTTP routing using chi
type Router struct {
	mux        chi.Router
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger
	maxBody    int64
	keys       *cache.KeyGenerator
	invalidate *cache.Invalidator
	started    time.Time
}

// RouteInfo describes a registered route
type RouteInfo struct {
	Method  string
	Pattern string
}

// New builds the router with the standard middleware stack
func New(config Config) *Router {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 1 << 20
	}

	r := &Router{
		mux:        chi.NewRouter(),
		dispatcher: config.Dispatcher,
		logger:     config.Logger,
		maxBody:    config.MaxBodyBytes,
		started:    time.Now(),
	}

	r.mux.Use(middleware.Standard(config.Logger, HealthPath).Middlewares()...)
	r.mux.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.RenderError(w, http.StatusNotFound, errors.New("route not found"))
	})
	r.mux.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Allow", "GET, POST")
		response.RenderError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})

	r.mux.Get(HealthPath, r.health)

	var authenticate func(http.Handler) http.Handler
	if config.Tokens != nil {
		authenticate = auth.Middleware(auth.Config{
			Tokens:        config.Tokens,
			PublicModules: config.PublicModules,
			Module: func(req *http.Request) string {
				return chi.URLParam(req, "module")
			},
			Logger: config.Logger,
		})
	}

	var throttle func(http.Handler) http.Handler
	if config.RateLimiter != nil {
		throttle = ratelimit.Middleware(ratelimit.MiddlewareConfig{
			Limiter: config.RateLimiter,
			KeyFunc: ratelimit.ClientKey(config.TrustProxy),
			Logger:  config.Logger,
		})
	}

	r.mux.Group(func(g chi.Router) {
		// authentication runs first so cached responses stay protected
		if authenticate != nil {
			g.Use(authenticate)
		}
		// cache hits count against the limit too
		if throttle != nil {
			g.Use(throttle)
		}
		if config.Cache != nil {
			r.keys = cache.DefaultKeyGenerator()
			// entries rendered before a converter change are never served
			r.keys.Version = config.Dispatcher.Converters().Generation
			if config.Tokens != nil {
				r.keys.Headers = append(r.keys.Headers, "Authorization")
			}
			r.invalidate = cache.NewInvalidator(config.Cache, r.keys, config.Logger)

			mwConfig := cache.DefaultMiddlewareConfig(config.Cache)
			mwConfig.KeyGenerator = r.keys
			mwConfig.Logger = config.Logger
			if config.CacheTTL != 0 {
				mwConfig.TTL = config.CacheTTL
			}
			g.Use(cache.Middleware(mwConfig))
		}
		g.Get(AjaxPattern, r.ajax)
		g.Post(AjaxPattern, r.ajax)
	})

	if config.TokenExchange != nil {
		exchange := http.Handler(config.TokenExchange)
		if throttle != nil {
			exchange = throttle(exchange)
		}
		r.mux.Method(http.MethodPost, TokenPath, exchange)
	}

	if config.WebSocket != nil {
		// connections always authenticate when tokens are enabled; each
		// frame is then checked against the token's modules
		ws := http.Handler(config.WebSocket)
		if throttle != nil {
			ws = throttle(ws)
		}
		if authenticate != nil {
			ws = authenticate(ws)
		}
		r.mux.Method(http.MethodGet, WebSocketPath, ws)
	}

	return r
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Invalidator returns the response cache invalidator, or nil when the
// cache is disabled.
func (r *Router) Invalidator() *cache.Invalidator {
	return r.invalidate
}

// Routes lists the registered routes for introspection
func (r *Router) Routes() []RouteInfo {
	var routes []RouteInfo
	chi.Walk(r.mux, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, RouteInfo{Method: method, Pattern: route})
		return nil
	})
	return routes
}

type healthStatus struct {
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	Converters int    `json:"converters"`
	Formats    int    `json:"formats"`
	Generation uint64 `json:"generation"`
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	converters := r.dispatcher.Converters()
	status := healthStatus{
		Status:     "ok",
		Uptime:     time.Since(r.started).Round(time.Second).String(),
		Converters: converters.Len(),
		Formats:    len(converters.Formats()),
		Generation: converters.Generation(),
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(status)
}

package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"go.uber.org/zap"
)

// Cache status reported in the X-Cache header
const (
	StatusHeader = "X-Cache"
	StatusHit    = "HIT"
	StatusMiss   = "MISS"
)

// MiddlewareConfig holds configuration for the cache middleware
type MiddlewareConfig struct {
	Cache        Cache
	KeyGenerator *KeyGenerator
	TTL          time.Duration
	// Methods lists the cacheable HTTP methods (defaults to GET)
	Methods   []string
	SkipPaths []string
	// CacheControl is sent with every cacheable response
	CacheControl string
	Logger       *zap.Logger
}

// DefaultMiddlewareConfig returns a middleware configuration for cache
func DefaultMiddlewareConfig(cache Cache) MiddlewareConfig {
	return MiddlewareConfig{
		Cache:        cache,
		KeyGenerator: DefaultKeyGenerator(),
		TTL:          5 * time.Minute,
		Methods:      []string{http.MethodGet},
		CacheControl: "private, max-age=0, must-revalidate",
		Logger:       zap.NewNop(),
	}
}

// storedResponse is the cached form of a rendered response
type storedResponse struct {
	StatusCode int         `json:"status"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	ETag       string      `json:"etag"`
}

// Middleware serves repeated requests from the cache. Backend errors are
// logged and the request falls through to the handler.
func Middleware(config MiddlewareConfig) func(http.Handler) http.Handler {
	if config.KeyGenerator == nil {
		config.KeyGenerator = DefaultKeyGenerator()
	}
	if len(config.Methods) == 0 {
		config.Methods = []string{http.MethodGet}
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Cache == nil ||
				!slices.Contains(config.Methods, r.Method) ||
				slices.Contains(config.SkipPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := config.KeyGenerator.GenerateKey(r)

			if stored, ok := lookup(ctx, config, key); ok {
				w.Header().Set(StatusHeader, StatusHit)
				if NotModified(w, r, stored.ETag) {
					return
				}
				for name, values := range stored.Headers {
					if _, set := w.Header()[name]; !set {
						w.Header()[name] = values
					}
				}
				SetCacheHeaders(w, stored.ETag, config.CacheControl)
				w.WriteHeader(stored.StatusCode)
				w.Write(stored.Body)
				return
			}

			w.Header().Set(StatusHeader, StatusMiss)
			rec := newRecorder(w)
			next.ServeHTTP(rec, r)
			rec.flush(config, r, key)
		})
	}
}

func lookup(ctx context.Context, config MiddlewareConfig, key string) (*storedResponse, bool) {
	data, err := config.Cache.Get(ctx, key)
	if err != nil {
		if !IsMiss(err) {
			config.Logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var stored storedResponse
	if err := json.Unmarshal(data, &stored); err != nil {
		config.Logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &stored, true
}

// recorder buffers the handler's response so it can be stored and
// given an ETag before anything reaches the client.
type recorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func newRecorder(w http.ResponseWriter) *recorder {
	return &recorder{ResponseWriter: w, statusCode: http.StatusOK}
}

// WriteHeader records the status code
func (r *recorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
}

// Write records the response body
func (r *recorder) Write(b []byte) (int, error) {
	return r.body.Write(b)
}

func (r *recorder) flush(config MiddlewareConfig, req *http.Request, key string) {
	w := r.ResponseWriter
	if r.statusCode < 200 || r.statusCode >= 300 || r.statusCode == http.StatusNoContent {
		w.WriteHeader(r.statusCode)
		w.Write(r.body.Bytes())
		return
	}

	body := r.body.Bytes()
	etag := GenerateETag(body)

	headers := w.Header().Clone()
	headers.Del(StatusHeader)
	stored := storedResponse{
		StatusCode: r.statusCode,
		Headers:    headers,
		Body:       body,
		ETag:       etag,
	}
	if data, err := json.Marshal(stored); err == nil {
		if err := config.Cache.Set(req.Context(), key, data, config.TTL); err != nil {
			config.Logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	SetCacheHeaders(w, etag, config.CacheControl)
	if NotModified(w, req, etag) {
		return
	}
	w.WriteHeader(r.statusCode)
	w.Write(body)
}

// Invalidator drops cached responses
type Invalidator struct {
	cache        Cache
	keyGenerator *KeyGenerator
	logger       *zap.Logger
}

// NewInvalidator creates an invalidator using the keys kg produces
func NewInvalidator(cache Cache, kg *KeyGenerator, logger *zap.Logger) *Invalidator {
	if kg == nil {
		kg = DefaultKeyGenerator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invalidator{cache: cache, keyGenerator: kg, logger: logger}
}

// InvalidateRequest drops the entry r would be served from
func (i *Invalidator) InvalidateRequest(ctx context.Context, r *http.Request) error {
	if i.cache == nil {
		return nil
	}
	return i.cache.Delete(ctx, i.keyGenerator.GenerateKey(r))
}

// InvalidateAll clears every cached response. Called after the converter
// set changes.
func (i *Invalidator) InvalidateAll(ctx context.Context) error {
	if i.cache == nil {
		return nil
	}
	if err := i.cache.Clear(ctx); err != nil {
		return err
	}
	i.logger.Debug("response cache cleared")
	return nil
}

package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/dispatch/internal/cli/config"
	"github.com/conduit-lang/dispatch/internal/cli/ui"
	"github.com/conduit-lang/dispatch/internal/logging"
	"github.com/conduit-lang/dispatch/internal/web/auth"
	"github.com/conduit-lang/dispatch/internal/web/cache"
	"github.com/conduit-lang/dispatch/internal/web/ratelimit"
	"github.com/conduit-lang/dispatch/internal/web/router"
	"github.com/conduit-lang/dispatch/internal/web/server"
	"github.com/conduit-lang/dispatch/internal/web/websocket"
)

// NewServeCommand creates the serve command
func NewServeCommand(opts *globalOptions) *cobra.Command {
	var (
		host         string
		port         int
		cacheBackend string
		rateLimit    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the AJAX HTTP server",
		Long: `Start the HTTP server answering GET|POST /ajax/{module}?action=&format=.

The output format comes from the format parameter, then the Accept header,
then conversion.default_format. GET /ws accepts the same calls as JSON
frames over a WebSocket. Settings are read from dispatch.yml and
DISPATCH_* environment variables; flags override both.

Examples:
  dispatch serve
  dispatch serve --port 9000
  dispatch serve --cache memory
  dispatch serve --rate-limit 60`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return explain(cmd.ErrOrStderr(), nil, err)
			}
			defer logging.Sync(a.logger)

			if cmd.Flags().Changed("host") {
				a.config.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.config.Server.Port = port
			}
			if cmd.Flags().Changed("cache") {
				a.config.Cache.Backend = cacheBackend
			}
			if cmd.Flags().Changed("rate-limit") {
				a.config.RateLimit.Enabled = rateLimit > 0
				a.config.RateLimit.Limit = rateLimit
			}
			return serve(cmd.Context(), cmd.OutOrStdout(), a)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Interface to listen on")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on")
	cmd.Flags().StringVar(&cacheBackend, "cache", "", "Response cache backend: none, memory or redis")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "Requests allowed per client per ratelimit.window; 0 disables")

	return cmd
}

func serve(ctx context.Context, out io.Writer, a *app) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := a.config

	backend, cacheConfig, redisConfig := cfg.Cache.Options()
	responseCache, err := cache.Open(ctx, backend, cacheConfig, redisConfig)
	if err != nil {
		return fmt.Errorf("failed to open response cache: %w", err)
	}
	limiter, err := openLimiter(ctx, cfg.RateLimit, redisConfig)
	if err != nil {
		if responseCache != nil {
			_ = responseCache.Close()
		}
		return err
	}
	release := func() {
		if responseCache != nil {
			_ = responseCache.Close()
		}
		if limiter != nil {
			_ = limiter.Close()
		}
	}

	routerConfig := router.Config{
		Dispatcher: a.dispatcher,
		Logger:     a.logger,
		Cache:      responseCache,
		CacheTTL:   cfg.Cache.TTL,
	}
	if cfg.Auth.Enabled() {
		tokens, err := a.tokens()
		if err != nil {
			release()
			return err
		}
		routerConfig.Tokens = tokens
		routerConfig.PublicModules = cfg.Auth.PublicModules
		if len(cfg.Auth.Clients) > 0 {
			clients := make([]auth.Client, 0, len(cfg.Auth.Clients))
			for _, c := range cfg.Auth.Clients {
				clients = append(clients, auth.Client{ID: c.ID, SecretHash: c.SecretHash, Modules: c.Modules})
			}
			exchange, err := auth.NewExchangeHandler(tokens, clients, a.logger)
			if err != nil {
				release()
				return &configError{err: fmt.Errorf("auth.clients: %w", err)}
			}
			routerConfig.TokenExchange = exchange
		}
	}
	var ws *websocket.Handler
	if cfg.WebSocket.Enabled {
		wsConfig := websocket.Config{
			Dispatcher:     a.dispatcher,
			Logger:         a.logger,
			MaxMessageSize: cfg.WebSocket.MaxMessageBytes,
		}
		if len(cfg.WebSocket.AllowedOrigins) > 0 {
			wsConfig.CheckOrigin = websocket.AllowOrigins(cfg.WebSocket.AllowedOrigins...)
		}
		ws = websocket.New(wsConfig)
		routerConfig.WebSocket = ws
	}
	if limiter != nil {
		routerConfig.RateLimiter = limiter
		routerConfig.TrustProxy = cfg.RateLimit.TrustProxy
	}
	handler := router.New(routerConfig)

	srvConfig := server.DefaultConfig(handler)
	srvConfig.Address = cfg.Server.Address()
	srvConfig.ReadTimeout = cfg.Server.ReadTimeout
	srvConfig.WriteTimeout = cfg.Server.WriteTimeout
	srvConfig.IdleTimeout = cfg.Server.IdleTimeout

	srv, err := server.New(srvConfig)
	if err != nil {
		release()
		return err
	}

	gs := server.NewGracefulShutdown(srv, &server.ShutdownConfig{
		Timeout: cfg.Server.ShutdownTimeout,
		Logger:  a.logger,
	})
	if ws != nil {
		gs.RegisterHook("websocket", ws.Hub().Close)
	}
	if responseCache != nil {
		gs.RegisterHook("response-cache", func(context.Context) error {
			return responseCache.Close()
		})
	}
	if limiter != nil {
		gs.RegisterHook("rate-limiter", func(context.Context) error {
			return limiter.Close()
		})
	}
	gs.RegisterHook("logger", func(context.Context) error {
		return logging.Sync(a.logger)
	})

	if err := srv.Listen(); err != nil {
		release()
		return err
	}

	a.logger.Info("starting dispatch",
		zap.String("version", Version),
		zap.String("addr", srv.Addr()),
		zap.String("cache", backend),
		zap.Bool("auth", cfg.Auth.Enabled()),
		zap.Bool("websocket", cfg.WebSocket.Enabled),
		zap.Bool("rate_limit", limiter != nil),
		zap.String("default_format", cfg.Conversion.DefaultFormat),
		zap.Int("converters", a.converters.Len()),
		zap.String("config_file", cfg.File),
	)
	fmt.Fprintln(out, ui.FormatSuccess("Listening on http://"+srv.Addr(), color.NoColor))

	return gs.Run(ctx)
}

// openLimiter returns nil when rate limiting is disabled
func openLimiter(ctx context.Context, cfg config.RateLimitConfig, redisConfig cache.RedisConfig) (ratelimit.Limiter, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	var client *redis.Client
	if cfg.Backend == ratelimit.BackendRedis {
		var err error
		if client, err = cache.Connect(ctx, redisConfig); err != nil {
			return nil, fmt.Errorf("failed to open rate limiter: %w", err)
		}
	}
	limiter, err := ratelimit.Open(cfg.Backend, cfg.Options(), client)
	if err != nil {
		if client != nil {
			client.Close()
		}
		return nil, fmt.Errorf("failed to open rate limiter: %w", err)
	}
	return limiter, nil
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownHook is called after the HTTP server has drained
type ShutdownHook func(ctx context.Context) error

// ShutdownConfig holds graceful shutdown configuration
type ShutdownConfig struct {
	// Timeout bounds draining plus hooks
	Timeout time.Duration
	// Signals to listen for (default: SIGINT, SIGTERM)
	Signals []os.Signal
	Logger  *zap.Logger
}

// DefaultShutdownConfig returns default shutdown configuration
func DefaultShutdownConfig() *ShutdownConfig {
	return &ShutdownConfig{
		Timeout: 30 * time.Second,
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Logger:  zap.NewNop(),
	}
}

// GracefulShutdown serves until a signal or context cancellation, then
// drains the server and runs the registered hooks in order.
type GracefulShutdown struct {
	server  *Server
	timeout time.Duration
	signals []os.Signal
	logger  *zap.Logger

	mu    sync.Mutex
	hooks []namedHook

	once sync.Once
	done chan struct{}
	err  error
}

type namedHook struct {
	name string
	fn   ShutdownHook
}

// NewGracefulShutdown creates a new graceful shutdown handler
func NewGracefulShutdown(server *Server, config *ShutdownConfig) *GracefulShutdown {
	defaults := DefaultShutdownConfig()
	if config == nil {
		config = defaults
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if len(config.Signals) == 0 {
		config.Signals = defaults.Signals
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}

	return &GracefulShutdown{
		server:  server,
		timeout: config.Timeout,
		signals: config.Signals,
		logger:  config.Logger,
		done:    make(chan struct{}),
	}
}

// RegisterHook adds a named hook run during shutdown
func (gs *GracefulShutdown) RegisterHook(name string, hook ShutdownHook) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, namedHook{name: name, fn: hook})
}

// Run serves until ctx is cancelled, a configured signal arrives or the
// server fails, then shuts down. A clean shutdown returns nil.
func (gs *GracefulShutdown) Run(ctx context.Context) error {
	if err := gs.server.Listen(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, gs.signals...)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		gs.logger.Info("server listening", zap.String("addr", gs.server.Addr()))
		if err := gs.server.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		gs.logger.Info("shutdown requested", zap.NamedError("reason", context.Cause(ctx)))
		return gs.Shutdown()
	case err := <-errCh:
		gs.once.Do(func() {
			defer close(gs.done)
			gs.err = err
			ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
			defer cancel()
			gs.runHooks(ctx)
		})
		return gs.Wait()
	}
}

// Shutdown drains the server and runs hooks. Safe to call repeatedly;
// every caller gets the same result.
func (gs *GracefulShutdown) Shutdown() error {
	gs.once.Do(func() {
		defer close(gs.done)
		gs.logger.Info("shutting down", zap.Duration("timeout", gs.timeout))

		ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
		defer cancel()

		if err := gs.server.Shutdown(ctx); err != nil {
			gs.err = fmt.Errorf("server shutdown error: %w", err)
			gs.logger.Error("server shutdown failed", zap.Error(err))
		}
		gs.runHooks(ctx)
		gs.logger.Info("shutdown complete")
	})
	<-gs.done
	return gs.err
}

// Wait blocks until shutdown is complete
func (gs *GracefulShutdown) Wait() error {
	<-gs.done
	return gs.err
}

// runHooks runs every hook; a failing hook does not stop the rest
func (gs *GracefulShutdown) runHooks(ctx context.Context) {
	gs.mu.Lock()
	hooks := append([]namedHook(nil), gs.hooks...)
	gs.mu.Unlock()

	for _, h := range hooks {
		if err := h.fn(ctx); err != nil {
			gs.logger.Warn("shutdown hook failed", zap.String("hook", h.name), zap.Error(err))
		}
	}
}

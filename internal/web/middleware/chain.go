// Package middleware holds the HTTP middleware wrapped around the AJAX
// endpoint: request IDs, panic recovery and structured access logs.
package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// Middleware is a function that wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Chain represents a composable chain of middleware
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{middlewares: middlewares}
}

// Use adds a middleware to the chain
func (c *Chain) Use(m Middleware) *Chain {
	c.middlewares = append(c.middlewares, m)
	return c
}

// Middlewares returns the chain in execution order, ready for chi's Use
func (c *Chain) Middlewares() []func(http.Handler) http.Handler {
	out := make([]func(http.Handler) http.Handler, len(c.middlewares))
	for i, m := range c.middlewares {
		out[i] = m
	}
	return out
}

// Then wraps the handler so the first middleware added runs first
func (c *Chain) Then(handler http.Handler) http.Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}
	return handler
}

// Standard returns the stack every dispatch server runs: request ID,
// access log, then panic recovery closest to the handler.
func Standard(logger *zap.Logger, skipPaths ...string) *Chain {
	return NewChain(
		RequestID(),
		LoggingWithConfig(LoggingConfig{
			Logger:    ZapLogger(logger),
			SkipPaths: skipPaths,
		}),
		RecoveryWithConfig(RecoveryConfig{
			EnableStackTrace: true,
			Logger:           ZapPanicLogger(logger),
		}),
	)
}

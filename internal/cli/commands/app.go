package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/conduit-lang/dispatch/internal/cli/config"
	"github.com/conduit-lang/dispatch/internal/cli/ui"
	"github.com/conduit-lang/dispatch/internal/conversion"
	"github.com/conduit-lang/dispatch/internal/conversion/converters"
	"github.com/conduit-lang/dispatch/internal/dispatch"
	"github.com/conduit-lang/dispatch/internal/logging"
	"github.com/conduit-lang/dispatch/internal/web/auth"
)

// app is the wired object graph every command works on
type app struct {
	config     *config.Config
	logger     *zap.Logger
	converters *conversion.Registry
	dispatcher *dispatch.Dispatcher
}

// loadApp reads configuration and builds the logger, the converter
// registry with the built-in converters and the dispatcher with the
// system module.
func loadApp(opts *globalOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, &configError{err: err}
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		return nil, &configError{err: err}
	}

	return newApp(cfg, logger)
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	reg := conversion.NewRegistry(conversion.WithLogger(logger))
	if err := converters.Register(reg, cfg.Conversion.Converters()); err != nil {
		return nil, fmt.Errorf("failed to register converters: %w", err)
	}

	d := dispatch.New(dispatch.NewActionRegistry(), reg, dispatch.Config{
		DefaultFormat: cfg.Conversion.DefaultFormat,
		Logger:        logger,
	})
	if err := dispatch.RegisterSystemModule(d); err != nil {
		return nil, fmt.Errorf("failed to register system module: %w", err)
	}

	return &app{
		config:     cfg,
		logger:     logger,
		converters: reg,
		dispatcher: d,
	}, nil
}

// tokens builds the token service from the auth section
func (a *app) tokens() (*auth.TokenService, error) {
	tokens, err := auth.NewTokenService(a.config.Auth.Secret, a.config.Auth.Issuer, a.config.Auth.TokenTTL)
	if err != nil {
		return nil, &configError{err: fmt.Errorf("auth: %w", err)}
	}
	return tokens, nil
}

// configError renders through ui.ConfigError
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// explain prints a helpful block for known failures and marks the error
// as reported so Execute does not print it twice.
func explain(w io.Writer, a *app, err error) error {
	if err == nil {
		return nil
	}
	noColor := color.NoColor

	var cfgErr *configError
	switch {
	case errors.As(err, &cfgErr):
		fmt.Fprint(w, ui.ConfigError(cfgErr.Error(), noColor))
	case a != nil:
		fmt.Fprint(w, ui.ConversionError(err, a.converters.Formats(), noColor))
	default:
		return err
	}
	return &reportedError{err: err}
}

package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/dispatch/internal/conversion"
)

// Config holds dispatcher configuration
type Config struct {
	// DefaultFormat is used when a request names no output format
	DefaultFormat string
	// SourceFormat is assumed for results that do not declare a format
	SourceFormat string
	// Logger receives debug traces of dispatched actions
	Logger *zap.Logger
}

// DefaultConfig returns the default dispatcher configuration
func DefaultConfig() Config {
	return Config{
		DefaultFormat: "json",
		SourceFormat:  "native",
		Logger:        zap.NewNop(),
	}
}

// Dispatcher performs actions and converts their results
type Dispatcher struct {
	actions    *ActionRegistry
	converters *conversion.Registry
	config     Config
}

// New creates a dispatcher over the given registries
func New(actions *ActionRegistry, converters *conversion.Registry, config Config) *Dispatcher {
	defaults := DefaultConfig()
	if config.DefaultFormat == "" {
		config.DefaultFormat = defaults.DefaultFormat
	}
	if config.SourceFormat == "" {
		config.SourceFormat = defaults.SourceFormat
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	return &Dispatcher{
		actions:    actions,
		converters: converters,
		config:     config,
	}
}

// Actions returns the action registry
func (d *Dispatcher) Actions() *ActionRegistry {
	return d.actions
}

// Converters returns the converter registry
func (d *Dispatcher) Converters() *conversion.Registry {
	return d.converters
}

// DefaultFormat returns the output format used when a request names none
func (d *Dispatcher) DefaultFormat() string {
	return d.config.DefaultFormat
}

// Dispatch performs the requested action and converts its result to the
// requested format. Empty results are returned as conversion.Empty
// without conversion.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (*conversion.Result, error) {
	action, err := d.actions.Lookup(req.Module, req.Action)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := action.Perform(ctx, req)
	if err != nil {
		return nil, err
	}
	if conversion.IsEmpty(result) {
		return conversion.Empty, nil
	}

	// convert a copy so an action returning a long-lived result keeps it native
	out := *result
	result = &out
	if result.Format == "" {
		result.Format = d.config.SourceFormat
	}
	from := result.Format
	to := req.Format
	if to == "" {
		to = d.config.DefaultFormat
	}

	ctx = conversion.WithOperation(ctx, req.Operation())
	if err := d.converters.Convert(ctx, from, to, result); err != nil {
		return nil, err
	}

	d.config.Logger.Debug("action dispatched",
		zap.String("operation", req.Operation()),
		zap.String("from", from),
		zap.String("to", to),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

package conversion

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Registry owns the converter graph and the resolved-chain cache.
//
// Registration and removal take the write lock and bump the topology
// generation; path searches share the read lock. Cached chains remember
// the generation they were computed under and are ignored once it moves.
type Registry struct {
	mu    sync.RWMutex
	graph *graph

	generation atomic.Uint64
	paths      sync.Map // Key -> cachedChain

	logger *zap.Logger
}

type cachedChain struct {
	generation uint64
	chain      *Chain
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the logger used for debug traces of path resolution
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		graph:  newGraph(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddConverter registers c. Registering the same input/output pair more
// than once is allowed; each registration becomes an alternative edge.
func (r *Registry) AddConverter(c Converter) error {
	if err := validateConverter(c); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.graph.add(c)
	gen := r.generation.Add(1)

	r.logger.Debug("converter registered",
		zap.String("input", c.InputFormat()),
		zap.String("output", c.OutputFormat()),
		zap.Stringer("quality", c.Quality()),
		zap.Uint64("generation", gen),
	)
	return nil
}

// RemoveConverter unregisters every registration of c, pruning its edges
// and invalidating cached chains. It reports whether anything was removed.
func (r *Registry) RemoveConverter(c Converter) bool {
	if c == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := r.graph.remove(c)
	if removed == 0 {
		return false
	}
	gen := r.generation.Add(1)

	r.logger.Debug("converter removed",
		zap.String("input", c.InputFormat()),
		zap.String("output", c.OutputFormat()),
		zap.Int("nodes", removed),
		zap.Uint64("generation", gen),
	)
	return true
}

// Path resolves the cheapest chain from one format to another. The
// returned chain is shared with the cache and must not be modified.
// Identity requests yield an empty chain and are never cached.
func (r *Registry) Path(from, to string) (*Chain, error) {
	if from == to {
		return &Chain{From: from, To: to}, nil
	}

	key := Key{From: from, To: to}
	if cached, ok := r.paths.Load(key); ok {
		entry := cached.(cachedChain)
		if entry.generation == r.generation.Load() {
			return entry.chain, nil
		}
	}

	r.mu.RLock()
	gen := r.generation.Load()
	chain, err := r.graph.shortestPath(from, to)
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	r.logger.Debug("conversion path resolved",
		zap.Stringer("key", key),
		zap.Stringer("chain", chain),
		zap.Int("weight", chain.Weight),
		zap.Uint64("generation", gen),
	)

	return r.store(key, cachedChain{generation: gen, chain: chain}), nil
}

// store caches entry unless an entry of the same generation is already
// present, in which case the first writer wins.
func (r *Registry) store(key Key, entry cachedChain) *Chain {
	for {
		existing, loaded := r.paths.LoadOrStore(key, entry)
		if !loaded {
			return entry.chain
		}
		prev := existing.(cachedChain)
		if prev.generation >= entry.generation {
			if prev.generation == entry.generation {
				return prev.chain
			}
			// cache already moved past us; hand back our own result
			return entry.chain
		}
		if r.paths.CompareAndSwap(key, prev, entry) {
			return entry.chain
		}
	}
}

// Convert transforms result from one format to another in place.
//
// It does nothing when from equals to or when result is empty. Otherwise
// it resolves the chain and applies every step in order; a failing step
// aborts the conversion and leaves result as the previous step left it.
func (r *Registry) Convert(ctx context.Context, from, to string, result *Result) error {
	if from == to || IsEmpty(result) {
		return nil
	}

	chain, err := r.Path(from, to)
	if err != nil {
		return &ConversionError{
			Operation: OperationFrom(ctx),
			From:      from,
			To:        to,
			Cause:     err,
		}
	}
	return chain.Apply(ctx, result)
}

// Apply runs every step of the chain against result, recording each
// step's output format on result after it succeeds.
func (c *Chain) Apply(ctx context.Context, result *Result) error {
	if c == nil || IsEmpty(result) {
		return nil
	}
	for i, step := range c.Steps {
		if err := step.Convert(ctx, result); err != nil {
			return &StepError{
				Index:  i,
				Input:  step.InputFormat(),
				Output: step.OutputFormat(),
				Cause:  err,
			}
		}
		result.Format = step.OutputFormat()
	}
	return nil
}

// CanConvert reports whether a chain exists between the two formats
func (r *Registry) CanConvert(from, to string) bool {
	_, err := r.Path(from, to)
	return err == nil
}

// Formats returns every format known to the registry, sorted
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.graph.formats()
}

// Converters returns the registered converters in registration order
func (r *Registry) Converters() []Converter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.graph.converters()
}

// Len returns the number of registrations
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.graph.nodes)
}

// Generation returns the topology generation. It changes on every
// successful AddConverter or RemoveConverter.
func (r *Registry) Generation() uint64 {
	return r.generation.Load()
}

func validateConverter(c Converter) error {
	if c == nil {
		return &ConfigError{Field: "converter", Message: "must not be nil"}
	}
	if !reflect.TypeOf(c).Comparable() {
		return &ConfigError{
			Field:   "converter",
			Value:   reflect.TypeOf(c).String(),
			Message: "type must be comparable; register a pointer",
		}
	}
	if c.InputFormat() == "" {
		return &ConfigError{Field: "input_format", Message: "must not be empty"}
	}
	if c.OutputFormat() == "" {
		return &ConfigError{Field: "output_format", Message: "must not be empty"}
	}
	if !c.Quality().Valid() {
		return &ConfigError{Field: "quality", Value: int(c.Quality()), Message: "must be Good or Bad"}
	}
	return nil
}

package conversion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRegistry_ConvertIdentityIsNoop(t *testing.T) {
	rec := &recorder{}
	r := newTestRegistry(t,
		tracing(rec, "json", "json", Good),
		tracing(rec, "json", "xml", Good),
	)

	for _, format := range []string{"json", "xml", "never-registered"} {
		result := NewResult([]string{"start"}, format)
		require.NoError(t, r.Convert(context.Background(), format, format, result))
		assert.Equal(t, []string{"start"}, result.Data)
		assert.Equal(t, format, result.Format)
	}
	assert.Empty(t, rec.Calls())

	chain, err := r.Path("json", "json")
	require.NoError(t, err)
	assert.Equal(t, 0, chain.Len())
	_, cached := r.paths.Load(Key{From: "json", To: "json"})
	assert.False(t, cached, "identity chains are never cached")
}

func TestRegistry_ConvertEmptyResultIsNoop(t *testing.T) {
	rec := &recorder{}
	r := newTestRegistry(t, tracing(rec, "a", "b", Good))

	require.NoError(t, r.Convert(context.Background(), "a", "b", Empty))
	require.NoError(t, r.Convert(context.Background(), "a", "b", nil))
	// no path exists here, but empty results never reach resolution
	require.NoError(t, r.Convert(context.Background(), "z", "q", Empty))

	assert.Empty(t, rec.Calls())
	assert.Nil(t, Empty.Data)
	assert.Empty(t, Empty.Format)
}

func TestRegistry_MultiHop(t *testing.T) {
	rec := &recorder{}
	r := newTestRegistry(t,
		tracing(rec, "a", "b", Good),
		tracing(rec, "b", "c", Good),
	)

	chain, err := r.Path("a", "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a>b", "b>c"}, stepNames(chain))
	assert.Equal(t, "a -> b -> c", chain.String())

	result := NewResult(nil, "a")
	require.NoError(t, r.Convert(context.Background(), "a", "c", result))
	assert.Equal(t, []string{"a>b", "b>c"}, result.Data)
	assert.Equal(t, "c", result.Format)
	assert.Equal(t, []string{"a>b", "b>c"}, rec.Calls())
}

func TestRegistry_ConcreteScenario(t *testing.T) {
	r := newTestRegistry(t,
		tracing(nil, "json", "xml", Good),
		tracing(nil, "xml", "pdf", Bad),
		tracing(nil, "json", "csv", Good),
		tracing(nil, "csv", "pdf", Good),
	)

	result := NewResult(nil, "json")
	require.NoError(t, r.Convert(context.Background(), "json", "pdf", result))
	assert.Equal(t, []string{"json>csv", "csv>pdf"}, result.Data)
	assert.Equal(t, "pdf", result.Format)
}

func TestRegistry_PathIsCachedAndDeterministic(t *testing.T) {
	r := newTestRegistry(t,
		tracing(nil, "a", "b", Good),
		tracing(nil, "b", "c", Good),
		tracing(nil, "a", "x", Good),
		tracing(nil, "x", "c", Good),
	)

	first, err := r.Path("a", "c")
	require.NoError(t, err)
	second, err := r.Path("a", "c")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, []string{"a>b", "b>c"}, stepNames(first))
}

func TestRegistry_PostRegistrationReachability(t *testing.T) {
	r := newTestRegistry(t, tracing(nil, "a", "b", Good))
	require.NoError(t, r.AddConverter(tracing(nil, "b", "c", Good)))

	result := NewResult(nil, "a")
	require.NoError(t, r.Convert(context.Background(), "a", "c", result))
	assert.Equal(t, "c", result.Format)
}

func TestRegistry_AddInvalidatesCachedChains(t *testing.T) {
	r := newTestRegistry(t,
		tracing(nil, "a", "b", Bad),
		tracing(nil, "b", "c", Bad),
	)

	before, err := r.Path("a", "c")
	require.NoError(t, err)
	assert.Equal(t, 4, before.Weight)
	gen := r.Generation()

	require.NoError(t, r.AddConverter(tracing(nil, "a", "c", Good)))
	assert.Greater(t, r.Generation(), gen)

	after, err := r.Path("a", "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a>c"}, stepNames(after))
	assert.Equal(t, 1, after.Weight)
}

func TestRegistry_AddMakesFailedPairResolvable(t *testing.T) {
	r := newTestRegistry(t, tracing(nil, "a", "b", Good))

	_, err := r.Path("a", "c")
	require.ErrorIs(t, err, ErrNoPath)
	assert.False(t, r.CanConvert("a", "c"))

	require.NoError(t, r.AddConverter(tracing(nil, "b", "c", Good)))
	assert.True(t, r.CanConvert("a", "c"))
}

func TestRegistry_RemoveConverter(t *testing.T) {
	viaCSV := tracing(nil, "csv", "pdf", Good)
	r := newTestRegistry(t,
		tracing(nil, "json", "xml", Good),
		tracing(nil, "xml", "pdf", Bad),
		tracing(nil, "json", "csv", Good),
		viaCSV,
	)

	chain, err := r.Path("json", "pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"json>csv", "csv>pdf"}, stepNames(chain))

	assert.True(t, r.RemoveConverter(viaCSV))
	assert.False(t, r.RemoveConverter(viaCSV), "second removal is a no-op")
	assert.False(t, r.RemoveConverter(nil))
	assert.Equal(t, 3, r.Len())

	chain, err = r.Path("json", "pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"json>xml", "xml>pdf"}, stepNames(chain))
}

func TestRegistry_RemoveLastSupplierMakesTargetUnreachable(t *testing.T) {
	bc := tracing(nil, "b", "c", Good)
	r := newTestRegistry(t, tracing(nil, "a", "b", Good), bc)
	require.True(t, r.CanConvert("a", "c"))

	r.RemoveConverter(bc)
	_, err := r.Path("a", "c")
	assert.ErrorIs(t, err, ErrNoPath)
	assert.Equal(t, []string{"a", "b"}, r.Formats())
}

func TestRegistry_ConvertFailures(t *testing.T) {
	r := newTestRegistry(t, tracing(nil, "a", "b", Good))
	ctx := WithOperation(context.Background(), "calendar.export")

	t.Run("unreachable target", func(t *testing.T) {
		err := r.Convert(ctx, "a", "c", NewResult(nil, "a"))
		require.Error(t, err)

		var convErr *ConversionError
		require.ErrorAs(t, err, &convErr)
		assert.Equal(t, "calendar.export", convErr.Operation)
		assert.Equal(t, "a", convErr.From)
		assert.Equal(t, "c", convErr.To)
		assert.ErrorIs(t, err, ErrNoPath)
		assert.ErrorIs(t, err, ErrNoConversionPath)
		assert.Contains(t, err.Error(), "calendar.export")
	})

	t.Run("unknown source", func(t *testing.T) {
		err := r.Convert(ctx, "z", "c", NewResult(nil, "z"))
		assert.ErrorIs(t, err, ErrUnknownFormat)
		assert.ErrorIs(t, err, ErrNoConversionPath)

		var unknown *UnknownFormatError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "z", unknown.Format)
	})
}

func TestRegistry_StepFailureAbortsChain(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("renderer exploded")
	r := newTestRegistry(t,
		tracing(rec, "a", "b", Good),
		New("b", "c", Good, func(ctx context.Context, result *Result) error {
			rec.record("b>c")
			return boom
		}),
		tracing(rec, "c", "d", Good),
	)

	result := NewResult(nil, "a")
	err := r.Convert(context.Background(), "a", "d", result)
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, stepErr.Index)
	assert.Equal(t, "b", stepErr.Input)
	assert.Equal(t, "c", stepErr.Output)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrStepFailed)

	// the first step stays applied
	assert.Equal(t, "b", result.Format)
	assert.Equal(t, []string{"a>b"}, result.Data)
	assert.Equal(t, []string{"a>b", "b>c"}, rec.Calls())
}

type valueConverter struct {
	in, out string
	hooks   []func()
}

func (v valueConverter) InputFormat() string                    { return v.in }
func (v valueConverter) OutputFormat() string                   { return v.out }
func (v valueConverter) Quality() Quality                       { return Good }
func (v valueConverter) Convert(context.Context, *Result) error { return nil }

func TestRegistry_AddConverterValidation(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name  string
		conv  Converter
		field string
	}{
		{"nil", nil, "converter"},
		{"empty input", New("", "b", Good, nil), "input_format"},
		{"empty output", New("a", "", Good, nil), "output_format"},
		{"unknown quality", New("a", "b", Quality(9), nil), "quality"},
		{"non-comparable", valueConverter{in: "a", out: "b"}, "converter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.AddConverter(tt.conv)
			require.Error(t, err)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}

	assert.Equal(t, 0, r.Len())
	assert.Equal(t, uint64(0), r.Generation())
}

func TestRegistry_Listings(t *testing.T) {
	first := tracing(nil, "native", "json", Good)
	second := tracing(nil, "json", "yaml", Bad)
	r := newTestRegistry(t, first, second)

	assert.Equal(t, []string{"json", "native", "yaml"}, r.Formats())
	assert.Equal(t, []Converter{first, second}, r.Converters())
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, "native -> json (good)", Describe(first))
}

func TestRegistry_DebugLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewRegistry(WithLogger(zap.New(core)))

	require.NoError(t, r.AddConverter(tracing(nil, "a", "b", Good)))
	_, err := r.Path("a", "b")
	require.NoError(t, err)
	_, err = r.Path("a", "missing")
	require.Error(t, err)

	assert.Equal(t, 1, logs.FilterMessage("converter registered").Len())
	resolved := logs.FilterMessage("conversion path resolved").All()
	require.Len(t, resolved, 1)
	assert.Equal(t, "a -> b", resolved[0].ContextMap()["chain"])
	for _, entry := range logs.All() {
		assert.Equal(t, zapcore.DebugLevel, entry.Level, "core never logs above debug")
	}
}

func TestRegistry_ConcurrentUse(t *testing.T) {
	r := newTestRegistry(t, tracing(nil, "f0", "f1", Good))

	var wg sync.WaitGroup
	for i := 1; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, r.AddConverter(tracing(nil, fmt.Sprintf("f%d", i), fmt.Sprintf("f%d", i+1), Good)))
		}(i)
	}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := NewResult(nil, "f0")
			// may or may not be reachable yet; must never corrupt state
			_ = r.Convert(context.Background(), "f0", "f5", result)
		}()
	}
	wg.Wait()

	chain, err := r.Path("f0", "f20")
	require.NoError(t, err)
	assert.Equal(t, 20, chain.Len())
	assert.Equal(t, 20, chain.Weight)
}

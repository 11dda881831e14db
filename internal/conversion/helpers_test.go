package conversion

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// recorder counts converter invocations across a test
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// tracing returns a converter that appends its edge name to result.Data
// (a []string) and to the recorder.
func tracing(rec *recorder, in, out string, q Quality) Converter {
	name := in + ">" + out
	return New(in, out, q, func(ctx context.Context, result *Result) error {
		if rec != nil {
			rec.record(name)
		}
		trail, _ := result.Data.([]string)
		result.Data = append(trail, name)
		return nil
	})
}

func newTestRegistry(t *testing.T, edges ...Converter) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, c := range edges {
		require.NoError(t, r.AddConverter(c))
	}
	return r
}

func stepNames(c *Chain) []string {
	names := make([]string, 0, c.Len())
	for _, s := range c.Steps {
		names = append(names, s.InputFormat()+">"+s.OutputFormat())
	}
	return names
}

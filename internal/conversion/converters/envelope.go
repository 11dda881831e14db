package converters

import (
	"context"
	"fmt"
	"time"

	"github.com/conduit-lang/dispatch/internal/conversion"
)

// Envelope is the standard API response body. Actions produce native
// values; the native -> apiResponse converter wraps them in an Envelope.
type Envelope struct {
	Data      any               `json:"data,omitempty" yaml:"data,omitempty"`
	Meta      map[string]any    `json:"meta,omitempty" yaml:"meta,omitempty"`
	Links     map[string]string `json:"links,omitempty" yaml:"links,omitempty"`
	Timestamp int64             `json:"timestamp" yaml:"timestamp"`
}

// NewEnvelope creates a new envelope around data
func NewEnvelope(data any) *Envelope {
	return &Envelope{
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

// WithMeta adds metadata to the response
func (r *Envelope) WithMeta(key string, value any) *Envelope {
	if r.Meta == nil {
		r.Meta = make(map[string]any)
	}
	r.Meta[key] = value
	return r
}

// WithLink adds a link to the response
func (r *Envelope) WithLink(rel, href string) *Envelope {
	if r.Links == nil {
		r.Links = make(map[string]string)
	}
	r.Links[rel] = href
	return r
}

// WithPagination adds pagination metadata
func (r *Envelope) WithPagination(page, perPage, total int) *Envelope {
	r.WithMeta("page", page)
	r.WithMeta("per_page", perPage)
	r.WithMeta("total", total)
	if perPage > 0 {
		r.WithMeta("total_pages", (total+perPage-1)/perPage)
	}
	return r
}

func envelopeOf(result *conversion.Result) (*Envelope, error) {
	switch v := result.Data.(type) {
	case *Envelope:
		return v, nil
	case Envelope:
		return &v, nil
	default:
		return nil, fmt.Errorf("expected %s payload, got %T", APIResponse, result.Data)
	}
}

// wrapEnvelope moves the native payload and the result metadata into an
// Envelope.
func wrapEnvelope(ctx context.Context, result *conversion.Result) error {
	if env, ok := result.Data.(*Envelope); ok {
		for k, v := range result.Meta {
			env.WithMeta(k, v)
		}
		return nil
	}

	env := NewEnvelope(result.Data)
	for k, v := range result.Meta {
		env.WithMeta(k, v)
	}
	result.Data = env
	return nil
}

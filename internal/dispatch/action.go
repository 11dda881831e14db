// Package dispatch routes AJAX requests to module actions and converts the
// results they produce into the format the client asked for.
package dispatch

import (
	"context"
	"net/url"
	"strings"

	"github.com/conduit-lang/dispatch/internal/conversion"
)

// Request is a parsed AJAX request
type Request struct {
	// Module groups related actions (e.g. "contacts", "system")
	Module string
	// Action names the operation within the module
	Action string
	// Params holds query and form parameters
	Params url.Values
	// Body is the raw request body, if any
	Body []byte
	// Format is the output format the client wants
	Format string
}

// Param returns the first value of a request parameter
func (r *Request) Param(name string) string {
	if r.Params == nil {
		return ""
	}
	return strings.TrimSpace(r.Params.Get(name))
}

// RequireParam returns a parameter value or a BadRequestError if it is missing
func (r *Request) RequireParam(name string) (string, error) {
	value := r.Param(name)
	if value == "" {
		return "", &BadRequestError{Param: name, Message: "missing required parameter"}
	}
	return value, nil
}

// Operation returns the "module.action" label used in logs and errors
func (r *Request) Operation() string {
	return r.Module + "." + r.Action
}

// Action performs one operation and returns its result in any format
// known to the converter registry, or conversion.Empty.
//
// The dispatcher converts a copy of the returned Result, never the Result
// itself, but actions should still return a fresh Result per call: the
// payload it points to is shared with the rendered response.
type Action interface {
	Perform(ctx context.Context, req *Request) (*conversion.Result, error)
}

// ActionFunc adapts an ordinary function to the Action interface
type ActionFunc func(ctx context.Context, req *Request) (*conversion.Result, error)

// Perform calls f(ctx, req)
func (f ActionFunc) Perform(ctx context.Context, req *Request) (*conversion.Result, error) {
	return f(ctx, req)
}

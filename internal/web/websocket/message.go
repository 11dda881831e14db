package websocket

import (
	"net/url"

	"github.com/conduit-lang/dispatch/internal/web/response"
)

// Request is one AJAX call sent by the client as a text frame:
//
//	{"id":"7","module":"system","action":"ping","format":"yaml"}
type Request struct {
	// ID is echoed in the reply so clients can match pipelined calls
	ID     string            `json:"id,omitempty"`
	Module string            `json:"module"`
	Action string            `json:"action"`
	Params map[string]string `json:"params,omitempty"`
	Format string            `json:"format,omitempty"`
}

// values converts Params to the form the dispatcher expects
func (r *Request) values() url.Values {
	values := make(url.Values, len(r.Params))
	for k, v := range r.Params {
		values.Set(k, v)
	}
	return values
}

// Reply answers one Request. Status follows HTTP semantics; Body holds
// the rendered result in Format, Error the failure.
type Reply struct {
	ID     string                  `json:"id,omitempty"`
	Status int                     `json:"status"`
	Format string                  `json:"format,omitempty"`
	Body   string                  `json:"body,omitempty"`
	Error  *response.ErrorResponse `json:"error,omitempty"`
}

package router

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/conduit-lang/dispatch/internal/conversion/converters"
	"github.com/conduit-lang/dispatch/internal/dispatch"
	webcontext "github.com/conduit-lang/dispatch/internal/web/context"
	"github.com/conduit-lang/dispatch/internal/web/response"
)

// ajax serves GET|POST /ajax/{module}?action=&format=
func (r *Router) ajax(w http.ResponseWriter, req *http.Request) {
	dreq, err := r.parseRequest(w, req)
	if err != nil {
		response.RenderDispatchError(w, err)
		return
	}

	ctx := req.Context()
	webcontext.RecordOperation(ctx, dreq.Module, dreq.Action)
	ctx = webcontext.SetFormat(ctx, dreq.Format)

	if !response.IsWireFormat(dreq.Format) {
		response.RenderErrorWithDetails(w, http.StatusNotAcceptable,
			fmt.Errorf("format %q cannot be sent over HTTP", dreq.Format),
			map[string]any{"format": dreq.Format, "available": converters.WireFormats})
		return
	}

	result, err := r.dispatcher.Dispatch(ctx, dreq)
	if err != nil {
		if response.StatusFor(err) >= http.StatusInternalServerError {
			r.logger.Error("action failed",
				zap.String("request_id", webcontext.GetRequestID(ctx)),
				zap.String("operation", dreq.Operation()),
				zap.Error(err),
			)
		}
		response.RenderDispatchError(w, err)
		return
	}

	if err := response.Write(w, http.StatusOK, result); err != nil {
		r.logger.Error("response write failed",
			zap.String("operation", dreq.Operation()),
			zap.Error(err),
		)
		response.RenderError(w, http.StatusInternalServerError, errors.New("Internal server error"))
	}
}

// parseRequest builds a dispatch request from the URL, query string and,
// for POST, the body. Form bodies are merged into the parameters; any
// other body is passed through raw.
func (r *Router) parseRequest(w http.ResponseWriter, req *http.Request) (*dispatch.Request, error) {
	params := req.URL.Query()

	var body []byte
	if req.Method == http.MethodPost && req.Body != nil {
		data, err := io.ReadAll(http.MaxBytesReader(w, req.Body, r.maxBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, &dispatch.TooLargeError{Limit: tooLarge.Limit}
			}
			return nil, &dispatch.BadRequestError{Message: "unreadable body", Cause: err}
		}
		body = data

		if isForm(req.Header.Get("Content-Type")) {
			form, err := url.ParseQuery(string(data))
			if err != nil {
				return nil, &dispatch.BadRequestError{Message: "malformed form body", Cause: err}
			}
			for name, values := range form {
				for _, v := range values {
					params.Add(name, v)
				}
			}
		}
	}

	dreq := &dispatch.Request{
		Module: chi.URLParam(req, "module"),
		Params: params,
		Body:   body,
		Format: response.Negotiate(req, r.dispatcher.DefaultFormat()),
	}

	action, err := dreq.RequireParam("action")
	if err != nil {
		return nil, err
	}
	dreq.Action = action
	return dreq, nil
}

func isForm(contentType string) bool {
	media, _, err := mime.ParseMediaType(contentType)
	return err == nil && strings.EqualFold(media, "application/x-www-form-urlencoded")
}

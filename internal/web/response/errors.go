package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/conduit-lang/dispatch/internal/conversion"
	"github.com/conduit-lang/dispatch/internal/dispatch"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// StatusFor maps a dispatch or conversion error to an HTTP status code
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, dispatch.ErrActionNotFound):
		return http.StatusNotFound
	case errors.Is(err, dispatch.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, dispatch.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, conversion.ErrNoConversionPath):
		return http.StatusNotAcceptable
	default:
		return http.StatusInternalServerError
	}
}

// Details extracts the structured fields clients can act on
func Details(err error) map[string]any {
	details := make(map[string]any)

	var notFound *dispatch.NotFoundError
	if errors.As(err, &notFound) {
		details["module"] = notFound.Module
		if notFound.Action != "" {
			details["action"] = notFound.Action
		}
	}

	var badRequest *dispatch.BadRequestError
	if errors.As(err, &badRequest) && badRequest.Param != "" {
		details["param"] = badRequest.Param
	}

	var convErr *conversion.ConversionError
	if errors.As(err, &convErr) {
		details["from"] = convErr.From
		details["to"] = convErr.To
		if convErr.Operation != "" {
			details["operation"] = convErr.Operation
		}
	}

	var stepErr *conversion.StepError
	if errors.As(err, &stepErr) {
		details["step"] = stepErr.Index
		details["converter"] = fmt.Sprintf("%s -> %s", stepErr.Input, stepErr.Output)
	}

	if len(details) == 0 {
		return nil
	}
	return details
}

// RenderError renders a standard error response
func RenderError(w http.ResponseWriter, statusCode int, err error) {
	RenderErrorWithDetails(w, statusCode, err, nil)
}

// RenderErrorWithDetails renders an error with additional details
func RenderErrorWithDetails(w http.ResponseWriter, statusCode int, err error, details map[string]any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(NewErrorResponse(statusCode, err, details))
}

// NewErrorResponse builds the error body sent for statusCode
func NewErrorResponse(statusCode int, err error, details map[string]any) *ErrorResponse {
	return &ErrorResponse{
		Error:   "error",
		Message: err.Error(),
		Code:    errorCodeFromStatus(statusCode),
		Details: details,
	}
}

// DispatchError picks the status for err and builds the body clients see.
// Messages of 5xx errors other than step failures are hidden.
func DispatchError(err error) (int, *ErrorResponse) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError && !errors.Is(err, conversion.ErrStepFailed) {
		return status, NewErrorResponse(status, errors.New("Internal server error"), nil)
	}
	return status, NewErrorResponse(status, err, Details(err))
}

// RenderDispatchError renders err as DispatchError describes it
func RenderDispatchError(w http.ResponseWriter, err error) {
	status, resp := DispatchError(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// errorCodeFromStatus maps HTTP status codes to error codes
func errorCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusNotAcceptable:
		return "not_acceptable"
	case http.StatusRequestEntityTooLarge:
		return "request_too_large"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusInternalServerError:
		return "internal_error"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	default:
		return "error"
	}
}

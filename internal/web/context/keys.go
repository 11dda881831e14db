// Package context stores request-scoped values shared by the middleware
// and the AJAX handlers.
package context

import "context"

// contextKey is a custom type for context keys to avoid collisions
type contextKey int

const (
	requestIDKey contextKey = iota
	operationKey
	formatKey
	subjectKey
)

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// SetRequestID adds the request ID to the context
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// Operation identifies the module action a request was routed to
type Operation struct {
	Module string
	Action string
}

// String returns "module.action"
func (o Operation) String() string {
	if o.Module == "" {
		return ""
	}
	return o.Module + "." + o.Action
}

// GetOperation extracts the routed operation from the context
func GetOperation(ctx context.Context) (Operation, bool) {
	op, ok := ctx.Value(operationKey).(*Operation)
	if !ok || op == nil {
		return Operation{}, false
	}
	return *op, true
}

// SetOperation attaches a mutable operation slot to the context. The
// access log middleware installs an empty slot before routing and reads
// it after the handler has filled it in.
func SetOperation(ctx context.Context, op *Operation) context.Context {
	return context.WithValue(ctx, operationKey, op)
}

// RecordOperation fills the operation slot installed by SetOperation, if any
func RecordOperation(ctx context.Context, module, action string) {
	if op, ok := ctx.Value(operationKey).(*Operation); ok && op != nil {
		op.Module = module
		op.Action = action
	}
}

// GetFormat extracts the negotiated output format from the context
func GetFormat(ctx context.Context) string {
	if format, ok := ctx.Value(formatKey).(string); ok {
		return format
	}
	return ""
}

// SetFormat records the negotiated output format
func SetFormat(ctx context.Context, format string) context.Context {
	return context.WithValue(ctx, formatKey, format)
}

// GetSubject returns the authenticated token subject, or ""
func GetSubject(ctx context.Context) string {
	if sub, ok := ctx.Value(subjectKey).(string); ok {
		return sub
	}
	return ""
}

// SetSubject records the authenticated token subject
func SetSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

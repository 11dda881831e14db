package conversion

import "context"

type operationKey struct{}

// WithOperation labels ctx with the operation performing a conversion.
// The label is reported in ConversionError.
func WithOperation(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operationKey{}, name)
}

// OperationFrom returns the operation label stored in ctx, or "".
func OperationFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if name, ok := ctx.Value(operationKey{}).(string); ok {
		return name
	}
	return ""
}

package conversion

// Result is the mutable container a conversion chain operates on.
type Result struct {
	// Data is the payload in the representation named by Format
	Data any
	// Format names the current representation of Data
	Format string
	// Meta carries side information (pagination, warnings, timestamps)
	Meta map[string]any
}

// Empty is the sentinel result for actions that produced nothing.
// Convert never touches it.
var Empty = &Result{}

// NewResult creates a result holding data in the given format
func NewResult(data any, format string) *Result {
	return &Result{Data: data, Format: format}
}

// IsEmpty reports whether r is nil or the Empty sentinel.
func IsEmpty(r *Result) bool {
	return r == nil || r == Empty
}

// SetMeta records a metadata entry, allocating the map on first use
func (r *Result) SetMeta(key string, value any) *Result {
	if r.Meta == nil {
		r.Meta = make(map[string]any)
	}
	r.Meta[key] = value
	return r
}

// Bytes returns Data as a byte slice when the current format is a
// serialized one. The second value is false for in-memory payloads.
func (r *Result) Bytes() ([]byte, bool) {
	switch v := r.Data.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	default:
		return nil, false
	}
}

package converters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/conduit-lang/dispatch/internal/conversion"
)

func marshalJSON(v any, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if pretty {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeJSON(pretty bool) conversion.ConvertFunc {
	return func(ctx context.Context, result *conversion.Result) error {
		env, err := envelopeOf(result)
		if err != nil {
			return err
		}
		data, err := marshalJSON(env, pretty)
		if err != nil {
			return err
		}
		result.Data = data
		return nil
	}
}

func decodeJSON(ctx context.Context, result *conversion.Result) error {
	data, err := payload(result, JSON)
	if err != nil {
		return err
	}
	v, err := unmarshalJSON(data)
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	result.Data = v
	return nil
}

// unmarshalJSON decodes a single JSON document keeping numbers as
// json.Number so integers past 2^53 keep their digits.
func unmarshalJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

// plainNumbers replaces every json.Number in v with an int64, uint64 or
// float64 for encoders that would otherwise quote it as a string.
func plainNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(val.String(), 10, 64); err == nil {
			return u
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		for k, item := range val {
			val[k] = plainNumbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = plainNumbers(item)
		}
		return val
	default:
		return v
	}
}

// normalize reduces an arbitrary Go value to the generic JSON data model
// (map[string]any, []any, string, json.Number, bool, nil) so that the
// tabular and XML encoders can walk it without reflection.
func normalize(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, json.Number:
		return v, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize %T: %w", v, err)
	}
	out, err := unmarshalJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize %T: %w", v, err)
	}
	return out, nil
}

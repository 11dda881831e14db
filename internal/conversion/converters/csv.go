package converters

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/conduit-lang/dispatch/internal/conversion"
)

// encodeCSV renders tabular native data. A list of objects becomes a table
// whose header is the sorted union of keys; a list of lists is written row
// by row; a single object becomes a one-row table.
func encodeCSV(ctx context.Context, result *conversion.Result) error {
	generic, err := normalize(result.Data)
	if err != nil {
		return err
	}

	rows, err := tabulate(generic)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to encode CSV: %w", err)
	}
	result.Data = buf.Bytes()
	return nil
}

func tabulate(v any) ([][]string, error) {
	switch val := v.(type) {
	case map[string]any:
		return tabulateObjects([]any{val})
	case []any:
		if len(val) == 0 {
			return nil, nil
		}
		if _, ok := val[0].(map[string]any); ok {
			return tabulateObjects(val)
		}
		rows := make([][]string, 0, len(val))
		for _, row := range val {
			cells, ok := row.([]any)
			if !ok {
				cells = []any{row}
			}
			rows = append(rows, cellStrings(cells))
		}
		return rows, nil
	case nil:
		return nil, nil
	default:
		return [][]string{{scalarString(val)}}, nil
	}
}

func tabulateObjects(objects []any) ([][]string, error) {
	seen := make(map[string]struct{})
	for i, obj := range objects {
		m, ok := obj.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("row %d is %T, expected an object like the first row", i, obj)
		}
		for k := range m {
			seen[k] = struct{}{}
		}
	}

	header := make([]string, 0, len(seen))
	for k := range seen {
		header = append(header, k)
	}
	sort.Strings(header)

	rows := make([][]string, 0, len(objects)+1)
	rows = append(rows, header)
	for _, obj := range objects {
		m := obj.(map[string]any)
		row := make([]string, len(header))
		for i, k := range header {
			row[i] = cellString(m[k])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func cellStrings(cells []any) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = cellString(c)
	}
	return out
}

// cellString flattens nested values into compact JSON
func cellString(v any) string {
	switch v.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return scalarString(v)
	}
}

package converters

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/conduit-lang/dispatch/internal/conversion"
)

// encodeText renders native data for humans: objects as "key: value"
// lines, lists one entry per line, scalars as-is.
func encodeText(ctx context.Context, result *conversion.Result) error {
	generic, err := normalize(result.Data)
	if err != nil {
		return err
	}
	var b strings.Builder
	writeText(&b, generic, "")
	result.Data = []byte(b.String())
	return nil
}

func writeText(b *strings.Builder, v any, indent string) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			switch child := val[k].(type) {
			case map[string]any, []any:
				fmt.Fprintf(b, "%s%s:\n", indent, k)
				writeText(b, child, indent+"  ")
			default:
				fmt.Fprintf(b, "%s%s: %s\n", indent, k, scalarString(child))
			}
		}
	case []any:
		for _, item := range val {
			switch item.(type) {
			case map[string]any, []any:
				fmt.Fprintf(b, "%s-\n", indent)
				writeText(b, item, indent+"  ")
			default:
				fmt.Fprintf(b, "%s- %s\n", indent, scalarString(item))
			}
		}
	default:
		fmt.Fprintf(b, "%s%s\n", indent, scalarString(val))
	}
}

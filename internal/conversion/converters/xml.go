package converters

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/conduit-lang/dispatch/internal/conversion"
)

// encodeXML renders the envelope as a generic element tree. Map keys become
// element names (sorted), slice entries become <item> elements. Attribute
// and namespace information cannot be expressed, hence the Bad quality.
func encodeXML(root string) conversion.ConvertFunc {
	return func(ctx context.Context, result *conversion.Result) error {
		env, err := envelopeOf(result)
		if err != nil {
			return err
		}
		generic, err := normalize(env)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		buf.WriteString(xml.Header)
		enc := xml.NewEncoder(&buf)
		enc.Indent("", "  ")
		if err := writeElement(enc, root, generic); err != nil {
			return fmt.Errorf("failed to encode XML: %w", err)
		}
		if err := enc.Flush(); err != nil {
			return fmt.Errorf("failed to encode XML: %w", err)
		}
		buf.WriteByte('\n')
		result.Data = buf.Bytes()
		return nil
	}
}

func writeElement(enc *xml.Encoder, name string, v any) error {
	start := xml.StartElement{Name: xml.Name{Local: elementName(name)}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := writeElement(enc, k, val[k]); err != nil {
				return err
			}
		}
	case []any:
		for _, item := range val {
			if err := writeElement(enc, "item", item); err != nil {
				return err
			}
		}
	case nil:
	default:
		if err := enc.EncodeToken(xml.CharData(scalarString(val))); err != nil {
			return err
		}
	}

	return enc.EncodeToken(start.End())
}

// elementName makes an arbitrary map key usable as an XML element name
func elementName(key string) string {
	if key == "" {
		return "_"
	}
	var b strings.Builder
	for i, r := range key {
		valid := r == '_' || r == '-' || r == '.' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !valid {
			r = '_'
		}
		if i == 0 && (r == '-' || r == '.' || (r >= '0' && r <= '9')) {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// scalarString formats a JSON scalar for text output
func scalarString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// Package converters provides the built-in result converters used by the
// action dispatcher. Actions usually produce "native" Go values; the
// converters here turn them into the envelope and wire formats clients
// ask for.
package converters

import (
	"fmt"

	"github.com/conduit-lang/dispatch/internal/conversion"
)

// Format names understood by the built-in converters
const (
	Native      = "native"
	APIResponse = "apiResponse"
	JSON        = "json"
	YAML        = "yaml"
	XML         = "xml"
	CSV         = "csv"
	Text        = "text"
)

// WireFormats lists the formats that end up as bytes on the wire.
var WireFormats = []string{JSON, YAML, XML, CSV, Text}

// Options configures the built-in converters
type Options struct {
	// PrettyJSON indents JSON output
	PrettyJSON bool
	// XMLRoot names the document element of XML output (default "response")
	XMLRoot string
}

// DefaultOptions returns the default converter options
func DefaultOptions() Options {
	return Options{
		PrettyJSON: false,
		XMLRoot:    "response",
	}
}

// All returns the built-in converters in registration order
func All(opts Options) []conversion.Converter {
	if opts.XMLRoot == "" {
		opts.XMLRoot = "response"
	}
	return []conversion.Converter{
		conversion.New(Native, APIResponse, conversion.Good, wrapEnvelope),
		conversion.New(APIResponse, JSON, conversion.Good, encodeJSON(opts.PrettyJSON)),
		conversion.New(APIResponse, YAML, conversion.Good, encodeYAML),
		conversion.New(APIResponse, XML, conversion.Bad, encodeXML(opts.XMLRoot)),
		conversion.New(Native, CSV, conversion.Good, encodeCSV),
		conversion.New(Native, Text, conversion.Bad, encodeText),
		conversion.New(JSON, Native, conversion.Good, decodeJSON),
		conversion.New(YAML, Native, conversion.Good, decodeYAML),
		conversion.New(JSON, YAML, conversion.Good, transcodeJSONToYAML),
		conversion.New(YAML, JSON, conversion.Good, transcodeYAMLToJSON(opts.PrettyJSON)),
	}
}

// Register installs the built-in converters into reg
func Register(reg *conversion.Registry, opts Options) error {
	for _, c := range All(opts) {
		if err := reg.AddConverter(c); err != nil {
			return fmt.Errorf("failed to register %s: %w", conversion.Describe(c), err)
		}
	}
	return nil
}

// payload returns the serialized bytes held by result or an error naming
// the format that was expected.
func payload(result *conversion.Result, format string) ([]byte, error) {
	data, ok := result.Bytes()
	if !ok {
		return nil, fmt.Errorf("expected %s payload as bytes, got %T", format, result.Data)
	}
	return data, nil
}

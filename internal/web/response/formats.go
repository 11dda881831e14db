// Package response writes dispatch results and errors to HTTP clients.
package response

import (
	"mime"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/conduit-lang/dispatch/internal/conversion/converters"
)

// FormatHeader names the conversion format a response body is in
const FormatHeader = "X-Dispatch-Format"

// contentTypes maps each wire format to the Content-Type it is served with
var contentTypes = map[string]string{
	converters.JSON: "application/json; charset=utf-8",
	converters.YAML: "application/x-yaml; charset=utf-8",
	converters.XML:  "application/xml; charset=utf-8",
	converters.CSV:  "text/csv; charset=utf-8",
	converters.Text: "text/plain; charset=utf-8",
}

// mediaFormats maps Accept media types to formats
var mediaFormats = map[string]string{
	"application/json":   converters.JSON,
	"application/x-yaml": converters.YAML,
	"application/yaml":   converters.YAML,
	"text/yaml":          converters.YAML,
	"application/xml":    converters.XML,
	"text/xml":           converters.XML,
	"text/csv":           converters.CSV,
	"text/plain":         converters.Text,
}

// ContentType returns the Content-Type for a wire format
func ContentType(format string) (string, bool) {
	ct, ok := contentTypes[format]
	return ct, ok
}

// IsWireFormat reports whether format can be written to a response body
func IsWireFormat(format string) bool {
	_, ok := contentTypes[format]
	return ok
}

// Negotiate picks the output format for a request: the explicit format
// parameter wins, then the best match in the Accept header, then fallback.
func Negotiate(r *http.Request, fallback string) string {
	if format := strings.TrimSpace(r.URL.Query().Get("format")); format != "" {
		return format
	}
	if format, ok := FormatFromAccept(r.Header.Get("Accept")); ok {
		return format
	}
	return fallback
}

type acceptRange struct {
	media string
	q     float64
}

// FormatFromAccept returns the highest-ranked format named by an Accept
// header. Wildcards never match so the caller's fallback applies.
func FormatFromAccept(accept string) (string, bool) {
	if accept == "" {
		return "", false
	}

	var ranges []acceptRange
	for _, part := range strings.Split(accept, ",") {
		media, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		q := 1.0
		if v, ok := params["q"]; ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				q = parsed
			}
		}
		if q <= 0 {
			continue
		}
		ranges = append(ranges, acceptRange{media: media, q: q})
	}

	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].q > ranges[j].q
	})

	for _, r := range ranges {
		if format, ok := mediaFormats[r.media]; ok {
			return format, true
		}
	}
	return "", false
}

package response

import (
	"fmt"
	"net/http"

	"github.com/conduit-lang/dispatch/internal/conversion"
)

// Write sends a converted result. Empty results become 204 No Content.
// The result must already be in a wire format holding bytes.
func Write(w http.ResponseWriter, statusCode int, result *conversion.Result) error {
	if conversion.IsEmpty(result) {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}

	contentType, ok := ContentType(result.Format)
	if !ok {
		return fmt.Errorf("format %q cannot be written to a response", result.Format)
	}
	body, ok := result.Bytes()
	if !ok {
		return fmt.Errorf("result in format %q holds %T, not bytes", result.Format, result.Data)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set(FormatHeader, result.Format)
	w.WriteHeader(statusCode)
	_, err := w.Write(body)
	return err
}

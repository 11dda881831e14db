package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// GenerateETag generates a strong ETag for the given content
func GenerateETag(content []byte) string {
	hash := sha256.Sum256(content)
	return `"` + hex.EncodeToString(hash[:16]) + `"`
}

// ParseIfNoneMatch splits an If-None-Match header into entity tags
func ParseIfNoneMatch(header string) []string {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}
	if header == "*" {
		return []string{"*"}
	}

	var etags []string
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			etags = append(etags, part)
		}
	}
	return etags
}

// MatchesETag reports whether etag matches any of etags using the weak
// comparison If-None-Match calls for.
func MatchesETag(etag string, etags []string) bool {
	if len(etags) == 1 && etags[0] == "*" {
		return true
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, e := range etags {
		if strings.TrimPrefix(e, "W/") == want {
			return true
		}
	}
	return false
}

// NotModified writes 304 when the request's If-None-Match matches etag
func NotModified(w http.ResponseWriter, r *http.Request, etag string) bool {
	if !MatchesETag(etag, ParseIfNoneMatch(r.Header.Get("If-None-Match"))) {
		return false
	}
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusNotModified)
	return true
}

// SetCacheHeaders sets ETag and Cache-Control on the response
func SetCacheHeaders(w http.ResponseWriter, etag, cacheControl string) {
	if etag != "" {
		w.Header().Set("ETag", etag)
	}
	if cacheControl != "" {
		w.Header().Set("Cache-Control", cacheControl)
	}
}

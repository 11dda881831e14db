package conversion

import (
	"fmt"
	"strings"
)

// Quality is a coarse preference hint attached to a converter.
type Quality int

const (
	// Good converters are lossless or canonical and cost 1 per hop
	Good Quality = iota + 1
	// Bad converters are lossy or fallbacks and cost 2 per hop
	Bad
)

// Weight returns the edge weight of a hop into a converter of this quality.
// Every Quality constant must have an entry here; Valid rejects the rest.
func (q Quality) Weight() int {
	switch q {
	case Good:
		return 1
	case Bad:
		return 2
	default:
		return 0
	}
}

// Valid reports whether q is one of the declared qualities.
func (q Quality) Valid() bool {
	return q.Weight() > 0
}

// String returns the lowercase name of the quality
func (q Quality) String() string {
	switch q {
	case Good:
		return "good"
	case Bad:
		return "bad"
	default:
		return fmt.Sprintf("quality(%d)", int(q))
	}
}

// ParseQuality parses "good" or "bad" (case-insensitive).
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "good":
		return Good, nil
	case "bad":
		return Bad, nil
	default:
		return 0, &ConfigError{Field: "quality", Value: s, Message: "must be good or bad"}
	}
}

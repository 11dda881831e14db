package conversion

import "strings"

// Key identifies a (from, to) conversion request.
type Key struct {
	From string
	To   string
}

func (k Key) String() string {
	return k.From + " -> " + k.To
}

// Chain is a resolved sequence of converters. Applied in order, Steps
// transform data from From to To.
type Chain struct {
	From   string
	To     string
	Steps  []Converter
	Weight int
}

// Len returns the number of steps in the chain
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Steps)
}

// Formats lists every format the data passes through, source first.
func (c *Chain) Formats() []string {
	if c == nil {
		return nil
	}
	formats := make([]string, 0, len(c.Steps)+1)
	formats = append(formats, c.From)
	for _, step := range c.Steps {
		formats = append(formats, step.OutputFormat())
	}
	return formats
}

func (c *Chain) String() string {
	return strings.Join(c.Formats(), " -> ")
}

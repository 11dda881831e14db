package conversion

import (
	"context"
	"fmt"
)

// Converter transforms a Result from one named format into another.
//
// InputFormat, OutputFormat and Quality must be pure and stable for the
// lifetime of the converter. Convert may mutate result.Data and
// result.Meta; the registry records OutputFormat on the result after each
// successful call.
type Converter interface {
	InputFormat() string
	OutputFormat() string
	Quality() Quality
	Convert(ctx context.Context, result *Result) error
}

// ConvertFunc is the body of a converter built with New.
type ConvertFunc func(ctx context.Context, result *Result) error

// funcConverter adapts a ConvertFunc to the Converter interface.
// It is always used through a pointer so that it stays comparable.
type funcConverter struct {
	in      string
	out     string
	quality Quality
	fn      ConvertFunc
}

// New returns a Converter from in to out backed by fn.
func New(in, out string, quality Quality, fn ConvertFunc) Converter {
	return &funcConverter{in: in, out: out, quality: quality, fn: fn}
}

func (c *funcConverter) InputFormat() string  { return c.in }
func (c *funcConverter) OutputFormat() string { return c.out }
func (c *funcConverter) Quality() Quality     { return c.quality }

func (c *funcConverter) Convert(ctx context.Context, result *Result) error {
	if c.fn == nil {
		return nil
	}
	return c.fn(ctx, result)
}

func (c *funcConverter) String() string {
	return Describe(c)
}

// Describe renders a converter as "in -> out (quality)".
func Describe(c Converter) string {
	return fmt.Sprintf("%s -> %s (%s)", c.InputFormat(), c.OutputFormat(), c.Quality())
}

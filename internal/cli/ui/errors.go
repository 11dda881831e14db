// Package ui renders CLI output: colored error blocks, tables and fuzzy
// suggestions for mistyped format names.
package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/conduit-lang/dispatch/internal/conversion"
)

// ErrorLevel represents the severity of an error message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Consequence  string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

func palette(level ErrorLevel) (header, body *color.Color, symbol string) {
	switch level {
	case ErrorLevelWarning:
		return color.New(color.FgYellow, color.Bold), color.New(color.FgYellow), "⚠️"
	case ErrorLevelInfo:
		return color.New(color.FgCyan, color.Bold), color.New(color.FgCyan), "ℹ️"
	default:
		return color.New(color.FgRed, color.Bold), color.New(color.FgRed), "❌"
	}
}

// FormatError creates a standardized error message
//
// Example output:
//
//	❌ UNKNOWN FORMAT: jsn
//	   No converter accepts format "jsn".
//
//	   Did you mean: json?
//
//	   → See all formats: dispatch formats
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	headerColor, bodyColor, symbol := palette(opts.Level)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	if opts.NoColor {
		for _, c := range []*color.Color{headerColor, bodyColor, yellow, cyan} {
			c.DisableColor()
		}
	}

	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s %s\n", symbol, strings.ToUpper(opts.Context))
		if opts.Problem != "" {
			bodyColor.Fprintf(&b, "   %s\n", opts.Problem)
		}
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if opts.Consequence != "" {
		b.WriteString("\n")
		bodyColor.Fprintf(&b, "   %s\n", opts.Consequence)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// ConversionError explains a failed path lookup or conversion, suggesting
// known formats close to the one that was not found.
func ConversionError(err error, formats []string, noColor bool) string {
	opts := ErrorOptions{
		Level:        ErrorLevelError,
		Problem:      err.Error(),
		HelpCommands: []string{"See all formats: dispatch formats"},
		NoColor:      noColor,
	}

	var unknown *conversion.UnknownFormatError
	var noPath *conversion.NoPathError
	var step *conversion.StepError
	switch {
	case errors.As(err, &unknown):
		opts.Context = "unknown format"
		opts.Problem = fmt.Sprintf("No converter accepts format %q.", unknown.Format)
		opts.Suggestions = FindSimilar(unknown.Format, formats, nil)
	case errors.As(err, &noPath):
		opts.Context = "no conversion path"
		opts.Problem = fmt.Sprintf("Nothing converts %q into %q.", noPath.From, noPath.To)
		opts.Suggestions = FindSimilar(noPath.To, formats, nil)
		opts.HelpCommands = append(opts.HelpCommands, "Inspect converters: dispatch formats --converters")
	case errors.As(err, &step):
		opts.Context = "conversion failed"
		opts.Consequence = "Steps before the failing converter were already applied."
	}

	// a suggestion equal to the input is no help
	opts.Suggestions = withoutExact(opts.Suggestions, unknownName(unknown, noPath))
	return FormatError(opts)
}

// ConfigError creates a standardized configuration error
func ConfigError(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:        ErrorLevelError,
		Context:      "configuration error",
		Problem:      message,
		HelpCommands: []string{"View config: cat dispatch.yml", "Get help: dispatch --help"},
		NoColor:      noColor,
	})
}

// Warning creates a standardized warning message
func Warning(message string, noColor bool) string {
	return FormatError(ErrorOptions{Level: ErrorLevelWarning, Problem: message, NoColor: noColor})
}

func unknownName(unknown *conversion.UnknownFormatError, noPath *conversion.NoPathError) string {
	switch {
	case unknown != nil:
		return unknown.Format
	case noPath != nil:
		return noPath.To
	default:
		return ""
	}
}

func withoutExact(suggestions []string, name string) []string {
	out := suggestions[:0]
	for _, s := range suggestions {
		if s != name {
			out = append(out, s)
		}
	}
	return out
}

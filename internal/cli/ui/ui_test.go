package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conduit-lang/dispatch/internal/conversion"
)

var formats = []string{"apiResponse", "csv", "json", "native", "text", "xml", "yaml"}

func TestFormatError(t *testing.T) {
	out := FormatError(ErrorOptions{
		Level:        ErrorLevelError,
		Context:      "unknown format",
		Problem:      `No converter accepts format "jsn".`,
		Consequence:  "Nothing was written.",
		Suggestions:  []string{"json"},
		HelpCommands: []string{"See all formats: dispatch formats"},
		NoColor:      true,
	})

	assert.Contains(t, out, "❌ UNKNOWN FORMAT\n")
	assert.Contains(t, out, `   No converter accepts format "jsn".`)
	assert.Contains(t, out, "   Nothing was written.")
	assert.Contains(t, out, "   Did you mean: json?")
	assert.Contains(t, out, "   → See all formats: dispatch formats")
}

func TestFormatError_Levels(t *testing.T) {
	assert.True(t, strings.HasPrefix(Warning("careful", true), "⚠️ careful"))
	assert.True(t, strings.HasPrefix(FormatError(ErrorOptions{Level: ErrorLevelInfo, Problem: "fyi", NoColor: true}), "ℹ️ fyi"))
	assert.Contains(t, ConfigError("bad port", true), "CONFIGURATION ERROR")
	assert.Equal(t, "✓ done", FormatSuccess("done", true))
}

func TestConversionError(t *testing.T) {
	t.Run("unknown source", func(t *testing.T) {
		out := ConversionError(&conversion.UnknownFormatError{Format: "jsn", To: "csv"}, formats, true)
		assert.Contains(t, out, "UNKNOWN FORMAT")
		assert.Contains(t, out, "Did you mean: json")
	})

	t.Run("no path to a known format", func(t *testing.T) {
		out := ConversionError(&conversion.NoPathError{From: "csv", To: "json"}, formats, true)
		assert.Contains(t, out, "NO CONVERSION PATH")
		assert.NotContains(t, out, "Did you mean: json")
	})

	t.Run("wrapped step failure", func(t *testing.T) {
		err := &conversion.ConversionError{From: "native", To: "xml", Cause: &conversion.StepError{Index: 1, Input: "apiResponse", Output: "xml"}}
		out := ConversionError(err, formats, true)
		assert.Contains(t, out, "CONVERSION FAILED")
		assert.Contains(t, out, "already applied")
	})

	t.Run("other errors", func(t *testing.T) {
		out := ConversionError(errors.New("disk full"), formats, true)
		assert.Contains(t, out, "❌ disk full")
	})
}

func TestFindSimilar(t *testing.T) {
	assert.Equal(t, []string{"yaml", "xml"}, FindSimilar("ymal", []string{"json", "yaml", "xml"}, &FuzzyMatchOptions{MaxDistance: 2}))
	assert.Equal(t, []string{"json"}, FindSimilar("JSN", formats, &FuzzyMatchOptions{MaxDistance: 1}))
	assert.Empty(t, FindSimilar("JSN", formats, &FuzzyMatchOptions{MaxDistance: 1, CaseSensitive: true}))
	assert.Len(t, FindSimilar("x", formats, &FuzzyMatchOptions{MaxDistance: 10, MaxSuggestions: 2}), 2)

	assert.Equal(t, "csv", FindBestMatch("cvs", formats, nil))
	assert.Equal(t, "", FindBestMatch("spreadsheet", formats, nil))
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"json", "json", 0},
		{"naïve", "naive", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevenshteinDistance(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, true, "INPUT", "OUTPUT", "QUALITY")
	table.AddRow("native", "apiResponse", "good")
	table.AddRow("apiResponse", "xml", "bad")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"INPUT        OUTPUT       QUALITY",
		"───────────  ───────────  ───────",
		"native       apiResponse  good",
		"apiResponse  xml          bad",
	}, lines)
}

func TestTable_NoHeaders(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, true).Render()
	assert.Empty(t, buf.String())
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	Header(&buf, "Formats", true)
	assert.Equal(t, "Formats\n───────\n", buf.String())
}

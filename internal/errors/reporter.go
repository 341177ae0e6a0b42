package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// ErrorReporter handles consistent diagnostic formatting
type ErrorReporter struct {
	filename string
	lines    []string
}

// NewErrorReporter creates a new reporter for a file. The source may be
// empty, in which case diagnostics are rendered without a code snippet.
func NewErrorReporter(filename, source string) *ErrorReporter {
	er := &ErrorReporter{filename: filename}
	if source != "" {
		er.lines = strings.Split(source, "\n")
	}
	return er
}

// FormatError formats a diagnostic with Rust-like styling
func (er *ErrorReporter) FormatError(diag Diagnostic) string {
	var result strings.Builder

	levelColor := er.getLevelColor(diag.Level)
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	// Header: error[E0701]: message
	if diag.Code != "" {
		result.WriteString(fmt.Sprintf("%s[%s]: %s\n",
			levelColor(diag.Level.String()), diag.Code, diag.Message))
	} else {
		result.WriteString(fmt.Sprintf("%s: %s\n",
			levelColor(diag.Level.String()), diag.Message))
	}

	if !diag.Loc.IsValid() {
		er.writeNotes(&result, diag, "   ")
		result.WriteString("\n")
		return result.String()
	}

	lineNumberWidth := er.getLineNumberWidth(diag.Loc.Line)
	indent := strings.Repeat(" ", lineNumberWidth)

	file := diag.Loc.File
	if file == "" {
		file = er.filename
	}
	result.WriteString(fmt.Sprintf("%s %s %s:%d:%d\n",
		indent, dim("-->"), file, diag.Loc.Line, diag.Loc.Column))

	if line, ok := er.line(diag.Loc.Line); ok && (diag.Loc.File == "" || diag.Loc.File == er.filename) {
		result.WriteString(fmt.Sprintf("%s %s\n", indent, dim("│")))
		result.WriteString(fmt.Sprintf("%s %s %s\n",
			bold(fmt.Sprintf("%*d", lineNumberWidth, diag.Loc.Line)),
			dim("│"),
			line))

		marker := er.createMarker(diag.Loc.Column, diag.Loc.Length, diag.Level)
		result.WriteString(fmt.Sprintf("%s %s %s\n", indent, dim("│"), marker))
	}

	er.writeNotes(&result, diag, indent)

	result.WriteString("\n")
	return result.String()
}

func (er *ErrorReporter) writeNotes(result *strings.Builder, diag Diagnostic, indent string) {
	dim := color.New(color.Faint).SprintFunc()
	noteColor := color.New(color.FgBlue).SprintFunc()
	for _, note := range diag.Notes {
		if note.Loc.IsValid() {
			result.WriteString(fmt.Sprintf("%s %s %s %s (%s)\n",
				indent, dim("│"), noteColor("note:"), note.Message, note.Loc))
		} else {
			result.WriteString(fmt.Sprintf("%s %s %s %s\n",
				indent, dim("│"), noteColor("note:"), note.Message))
		}
	}
}

func (er *ErrorReporter) line(n int) (string, bool) {
	if n <= 0 || n > len(er.lines) {
		return "", false
	}
	return er.lines[n-1], true
}

// getLevelColor returns the appropriate color function for a level
func (er *ErrorReporter) getLevelColor(level ErrorLevel) func(...interface{}) string {
	switch level {
	case Error:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case Warning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case Info:
		return color.New(color.FgBlue, color.Bold).SprintFunc()
	default:
		return color.New(color.FgGreen, color.Bold).SprintFunc()
	}
}

// createMarker creates the underline marker for diagnostics
func (er *ErrorReporter) createMarker(column, length int, level ErrorLevel) string {
	if length <= 0 {
		length = 1
	}

	spaces := strings.Repeat(" ", max(0, column-1))

	markerChar := "^"
	if level < Warning {
		markerChar = "-"
	}

	return spaces + er.getLevelColor(level)(strings.Repeat(markerChar, length))
}

// getLineNumberWidth calculates the width needed for line numbers
func (er *ErrorReporter) getLineNumberWidth(line int) int {
	width := len(fmt.Sprintf("%d", line))
	if width < 3 {
		width = 3 // minimum width for visual alignment
	}
	return width
}

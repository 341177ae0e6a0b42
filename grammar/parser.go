package grammar

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/fatih/color"
	"kiln/internal/errors"
)

var parser = participle.MustBuild[File](
	participle.Lexer(CFGLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(4),
)

// ParseString parses the text form of one or more graphs
func ParseString(filename, source string) (*File, error) {
	return parser.ParseString(filename, source)
}

// ParseFile reads and parses the file at path
func ParseFile(path string) (*File, string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, "", errors.Wrapf(err, "failed to read file")
	}
	file, err := ParseString(path, string(source))
	return file, string(source), err
}

// FormatParseError renders a friendly caret-style message for syntax
// errors and for text that does not describe a valid graph.
func FormatParseError(src string, err error) string {
	var (
		pos     lexer.Position
		message string
		loadErr *LoadError
	)
	if pe, ok := err.(participle.Error); ok {
		pos, message = pe.Position(), pe.Message()
	} else if errors.As(err, &loadErr) {
		pos, message = loadErr.Pos, loadErr.Err.Error()
	} else {
		return color.RedString("Unexpected error: %s", err)
	}

	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		return color.RedString("Syntax error at unknown location: %s", err)
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", max(pos.Column-1, 0)) + "^"

	var sb strings.Builder
	sb.WriteString(color.RedString("Syntax error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column))
	sb.WriteString("\n" + line + "\n")
	sb.WriteString(color.HiRedString(caret))
	fmt.Fprintf(&sb, "\n→ %s\n", message)
	return sb.String()
}

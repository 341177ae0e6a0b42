package lsp

import (
	"context"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"kiln/grammar"
	"kiln/internal/compiler"
	"kiln/internal/errors"
	"kiln/internal/sema"
	"kiln/internal/source"
)

const diagnosticSource = "kiln"

// Check loads the graphs in text, runs the optimization pipeline over them
// and reports everything that went wrong as LSP diagnostics. A file that
// does not load produces a single diagnostic and no optimization.
func Check(ctx context.Context, filename, text string, target sema.Target, opts compiler.Options) []protocol.Diagnostic {
	cfgs, err := grammar.LoadCFG(filename, text)
	if err != nil {
		return []protocol.Diagnostic{ConvertLoadError(err)}
	}

	ns := sema.NewNamespace(target)
	err = compiler.Optimize(ctx, ns, cfgs, opts)

	diagnostics := []protocol.Diagnostic{}
	for _, diag := range ns.Diagnostics.All() {
		diagnostics = append(diagnostics, ConvertDiagnostic(diag))
	}
	if err != nil && !errors.Is(err, errors.ErrDiagnostics) {
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Severity: ptrSeverity(protocol.DiagnosticSeverityError),
			Source:   ptrString(diagnosticSource),
			Message:  err.Error(),
		})
	}
	return diagnostics
}

// ConvertLoadError transforms a syntax error or a malformed graph into a
// diagnostic at the position the loader stopped.
func ConvertLoadError(err error) protocol.Diagnostic {
	var (
		pos     lexer.Position
		message = err.Error()
		loadErr *grammar.LoadError
	)
	if pe, ok := err.(participle.Error); ok {
		pos, message = pe.Position(), pe.Message()
	} else if errors.As(err, &loadErr) {
		pos, message = loadErr.Pos, loadErr.Err.Error()
	}

	return protocol.Diagnostic{
		Range:    toRange(source.Loc{Line: pos.Line, Column: pos.Column}),
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Source:   ptrString(diagnosticSource + "-parser"),
		Message:  message,
	}
}

// ConvertDiagnostic transforms a compiler diagnostic. Diagnostics about
// generated code are reported at the top of the file.
func ConvertDiagnostic(diag errors.Diagnostic) protocol.Diagnostic {
	d := protocol.Diagnostic{
		Range:    toRange(diag.Loc),
		Severity: ptrSeverity(severity(diag.Level)),
		Source:   ptrString(diagnosticSource),
		Message:  diag.Message,
	}
	if diag.Code != "" {
		d.Code = &protocol.IntegerOrString{Value: diag.Code}
	}
	for _, note := range diag.Notes {
		d.Message += "\nnote: " + note.Message
	}
	return d
}

func severity(level errors.ErrorLevel) protocol.DiagnosticSeverity {
	switch level {
	case errors.Error:
		return protocol.DiagnosticSeverityError
	case errors.Warning:
		return protocol.DiagnosticSeverityWarning
	case errors.Info:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityHint
	}
}

func toRange(loc source.Loc) protocol.Range {
	if !loc.IsValid() {
		return protocol.Range{}
	}
	length := loc.Length
	if length == 0 {
		length = 1
	}
	start := protocol.Position{
		Line:      uint32(loc.Line - 1),
		Character: uint32(max(loc.Column-1, 0)),
	}
	end := start
	end.Character += uint32(length)
	return protocol.Range{Start: start, End: end}
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func ptrString(s string) *string {
	return &s
}

package printer

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"

	"sourcestep/interpreter-go/pkg/ast"
	"sourcestep/interpreter-go/pkg/interpreter"
	"sourcestep/interpreter-go/pkg/typechecker"
)

// FormatDiagnostic renders d against the source it was found in: a header
// with the location, then each affected line with a caret under the start
// and, for multi-line spans, another under the end.
func FormatDiagnostic(code string, d typechecker.Diagnostic) string {
	return Report(code, d.Message(), d.Location())
}

// FormatRuntimeError renders an accumulated runtime error the same way.
func FormatRuntimeError(code string, e interpreter.RuntimeError) string {
	var span ast.Span
	if e.Node != nil {
		span = e.Node.Span()
	}
	return Report(code, e.Explanation, span)
}

// Code is the short kebab-case identifier of a diagnostic, for example
// "type/mismatched-type".
func Code(d typechecker.Diagnostic) string {
	return string(d.Kind) + "/" + strcase.ToKebab(string(d.Type))
}

// Summary is a one-line form of d prefixed with its code.
func Summary(d typechecker.Diagnostic) string {
	start := d.Location().Start
	return fmt.Sprintf("%s: %s (line %d col %d)", Code(d), d.Message(), start.Line, start.Column)
}

// Report formats message at span within code.
func Report(code, message string, span ast.Span) string {
	code = strings.ReplaceAll(code, "\r\n", "\n")
	lines := strings.Split(code, "\n")
	start, end := span.Start, span.End

	var b strings.Builder
	fmt.Fprintf(&b, "%s (line %d col %d)", message, start.Line, start.Column)
	multi := end != (ast.Position{}) && end != start
	if multi {
		fmt.Fprintf(&b, " - (line %d col %d)", end.Line, end.Column)
	}
	b.WriteByte('\n')

	last := start.Line
	if multi {
		last = end.Line
	}
	for li := start.Line; li <= last && li >= 1; li++ {
		text := ""
		if li-1 < len(lines) {
			text = lines[li-1]
		}
		b.WriteString(text)
		b.WriteByte('\n')
		switch li {
		case start.Line:
			b.WriteString(strings.Repeat(" ", max(start.Column-1, 0)))
			b.WriteByte('^')
			b.WriteString(strings.Repeat("-", max(len(text)-start.Column, 0)))
			b.WriteByte('\n')
		case last:
			b.WriteString(strings.Repeat("-", max(end.Column-1, 0)))
			b.WriteString("^\n")
		}
	}
	b.WriteByte('\n')
	return b.String()
}

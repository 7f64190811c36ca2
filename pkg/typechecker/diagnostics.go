package typechecker

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"sourcestep/interpreter-go/pkg/ast"
)

type DiagnosticKind string

const (
	KindSyntax DiagnosticKind = "syntax"
	KindType   DiagnosticKind = "type"
)

// ErrorType names the rule a diagnostic violates.
type ErrorType string

const (
	ErrUndeclaredName        ErrorType = "UndeclaredName"
	ErrRedeclaration         ErrorType = "Redeclaration"
	ErrReturnOutsideFunction ErrorType = "ReturnOutsideFunction"
	ErrMismatchedType        ErrorType = "MismatchedType"
	ErrNotCallable           ErrorType = "NotCallable"
	ErrArityMismatch         ErrorType = "ArityMismatch"
	ErrMissingSemicolon      ErrorType = "MissingSemicolon"
	ErrUnsupportedSyntax     ErrorType = "UnsupportedSyntax"
	ErrInvalidSyntax         ErrorType = "InvalidSyntax"
)

// Diagnostic is a syntax or type error found during analysis. Type errors
// carry the expected set, the actual type and the node that proved it.
type Diagnostic struct {
	Kind        DiagnosticKind
	Type        ErrorType
	Node        ast.Node
	Expected    []Type
	Got         Type
	Proof       ast.Node
	Explanation string
	// At overrides the node's span when the problem sits elsewhere, such
	// as the end of a statement lacking its semicolon.
	At ast.Span
}

// Location is where the diagnostic should be reported.
func (d Diagnostic) Location() ast.Span {
	if !d.At.IsZero() || d.Node == nil {
		return d.At
	}
	return d.Node.Span()
}

// Message returns a one-line description without location.
func (d Diagnostic) Message() string {
	if d.Explanation != "" {
		return d.Explanation
	}
	if d.Kind == KindType && len(d.Expected) > 0 {
		return fmt.Sprintf("expected %s, got %s", describeTypes(d.Expected), d.Got)
	}
	return string(d.Type)
}

func (d Diagnostic) Error() string {
	if d.Node == nil && d.At.IsZero() {
		return fmt.Sprintf("%s error: %s", d.Kind, d.Message())
	}
	start := d.Location().Start
	return fmt.Sprintf("%s error: %s (line %d col %d)", d.Kind, d.Message(), start.Line, start.Column)
}

// Result is the output of one analysis run.
type Result struct {
	Graph       *Graph
	Diagnostics []Diagnostic
}

// Err folds every diagnostic into a single error, or nil when clean.
func (r *Result) Err() error {
	if r == nil {
		return nil
	}
	var errs *multierror.Error
	for _, d := range r.Diagnostics {
		errs = multierror.Append(errs, d)
	}
	return errs.ErrorOrNil()
}

// ByKind filters diagnostics.
func (r *Result) ByKind(kind DiagnosticKind) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

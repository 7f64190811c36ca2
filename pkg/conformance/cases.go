// Package conformance runs fixture files whose statements are each followed
// by a line comment holding the expected value, for example
//
//	1 + 2; // 3
//	"a" + 1; // "a1"
//
// All statements of a fixture share one environment, in order.
package conformance

import (
	"strings"

	"github.com/pkg/errors"

	"sourcestep/interpreter-go/pkg/ast"
	"sourcestep/interpreter-go/pkg/interpreter"
	"sourcestep/interpreter-go/pkg/parser"
	"sourcestep/interpreter-go/pkg/runtime"
)

// Case is one statement and the value it must leave behind.
type Case struct {
	Fixture   string
	Line      int
	Statement ast.Statement
	Expected  runtime.Value
	// Want is the comment text the expectation was read from.
	Want string
}

// ErrInvalidFixture wraps every problem found while reading a fixture.
var ErrInvalidFixture = errors.New("invalid fixture")

// LoadCases pairs the top-level statements of code with its line comments:
// the n-th line comment holds the expectation for the n-th statement. A
// statement without a comment expects undefined.
func LoadCases(p *parser.Parser, fixture string, code []byte) ([]Case, error) {
	prog, diags, err := p.Parse(code)
	if err != nil {
		return nil, errors.Wrapf(err, "fixture %s", fixture)
	}
	if prog == nil {
		msg := "no program"
		if len(diags) > 0 {
			msg = diags[0].Error()
		}
		return nil, errors.Wrapf(ErrInvalidFixture, "%s: %s", fixture, msg)
	}
	comments, err := p.Comments(code)
	if err != nil {
		return nil, errors.Wrapf(err, "fixture %s", fixture)
	}
	var expectations []string
	for _, c := range comments {
		if !c.Block {
			expectations = append(expectations, strings.TrimSpace(c.Text))
		}
	}

	cases := make([]Case, 0, len(prog.Body))
	for i, stmt := range prog.Body {
		c := Case{
			Fixture:   fixture,
			Line:      stmt.Span().Start.Line,
			Statement: stmt,
			Expected:  runtime.Undefined,
			Want:      "undefined",
		}
		if i < len(expectations) {
			value, err := expectedValue(p, expectations[i])
			if err != nil {
				return nil, errors.Wrapf(ErrInvalidFixture, "%s: L%d: expected value %q: %v", fixture, c.Line, expectations[i], err)
			}
			c.Expected = value
			c.Want = expectations[i]
		}
		cases = append(cases, c)
	}
	return cases, nil
}

// expectedValue evaluates the text of an expectation comment on its own.
// Only literal-like expressions are accepted so fixtures cannot depend on
// each other through their comments.
func expectedValue(p *parser.Parser, text string) (runtime.Value, error) {
	prog, diags, err := p.Parse([]byte(text + ";"))
	if err != nil {
		return nil, err
	}
	if prog == nil || len(prog.Body) != 1 {
		if len(diags) > 0 {
			return nil, diags[0]
		}
		return nil, errors.New("expected a single expression")
	}
	stmt, ok := prog.Body[0].(*ast.ExpressionStatement)
	if !ok || !literalLike(stmt.Expression) {
		return nil, errors.New("expected a literal")
	}
	snap := interpreter.NewSnapshot(text, nil)
	value := interpreter.EvalStatement(stmt, snap)
	if len(snap.Errors) > 0 {
		return nil, snap.Errors[0]
	}
	return value, nil
}

func literalLike(expr ast.Expression) bool {
	switch e := expr.(type) {
	case *ast.Literal:
		return true
	case *ast.Identifier:
		switch e.Name {
		case "undefined", "NaN", "Infinity":
			return true
		}
		return false
	case *ast.UnaryExpression:
		return (e.Operator == "-" || e.Operator == "+") && literalLike(e.Operand)
	case *ast.BinaryExpression:
		return literalLike(e.Left) && literalLike(e.Right)
	default:
		return false
	}
}

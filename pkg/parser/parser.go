// Package parser turns JavaScript source into the tagged AST using the
// tree-sitter JavaScript grammar. Only the subset the evaluator runs is
// accepted; everything else is reported as a syntax diagnostic.
package parser

import (
	"fmt"

	"github.com/pkg/errors"
	sitter "github.com/tree-sitter/go-tree-sitter"
	javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"

	"sourcestep/interpreter-go/pkg/ast"
	"sourcestep/interpreter-go/pkg/typechecker"
)

// Parser wraps a tree-sitter parser configured for JavaScript. Node tags
// are drawn from one generator for the parser's lifetime, so programs
// parsed by the same Parser never share tags.
type Parser struct {
	parser *sitter.Parser
	ids    *ast.IDGenerator
}

// NewParser constructs a parser with the JavaScript language loaded.
func NewParser() (*Parser, error) {
	lang := sitter.NewLanguage(javascript.Language())
	if lang == nil {
		return nil, fmt.Errorf("parser: javascript language not available")
	}
	p := sitter.NewParser()
	if err := p.SetLanguage(lang); err != nil {
		p.Close()
		return nil, errors.Wrap(err, "parser")
	}
	return &Parser{parser: p, ids: ast.NewIDGenerator("n")}, nil
}

// Close releases parser resources.
func (p *Parser) Close() {
	if p == nil || p.parser == nil {
		return
	}
	p.parser.Close()
}

// Parse converts source into a program. Syntax problems come back as
// diagnostics; the program is nil when any of them makes the source
// unrunnable. Missing semicolons are reported but do not block it.
func (p *Parser) Parse(source []byte) (*ast.Program, []typechecker.Diagnostic, error) {
	if p == nil || p.parser == nil {
		return nil, nil, fmt.Errorf("parser: nil parser")
	}
	tree := p.parser.Parse(source, nil)
	if tree == nil {
		return nil, nil, fmt.Errorf("parser: no tree produced")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.Kind() != "program" {
		return nil, nil, fmt.Errorf("parser: unexpected root node")
	}

	c := &converter{source: source}
	if root.HasError() {
		c.collectErrors(root)
		return nil, c.diags, nil
	}

	body := c.statements(root)
	prog := ast.NewProgram(body)
	annotateSpan(prog, root)
	if c.fatal {
		return nil, c.diags, nil
	}
	ast.AssignIDs(prog, p.ids)
	return prog, c.diags, nil
}

// Parse is a convenience wrapper that parses with a throwaway Parser.
func Parse(source []byte) (*ast.Program, []typechecker.Diagnostic, error) {
	p, err := NewParser()
	if err != nil {
		return nil, nil, err
	}
	defer p.Close()
	return p.Parse(source)
}

type converter struct {
	source []byte
	diags  []typechecker.Diagnostic
	fatal  bool
}

// unsupportedError marks a construct outside the runnable subset.
type unsupportedError struct {
	node *sitter.Node
	what string
}

func (e *unsupportedError) Error() string {
	return fmt.Sprintf("unsupported syntax: %s", e.what)
}

func unsupported(node *sitter.Node, format string, args ...any) error {
	return &unsupportedError{node: node, what: fmt.Sprintf(format, args...)}
}

func (c *converter) report(errType typechecker.ErrorType, node ast.Node, span ast.Span, explanation string) {
	c.diags = append(c.diags, typechecker.Diagnostic{
		Kind:        typechecker.KindSyntax,
		Type:        errType,
		Node:        node,
		At:          span,
		Explanation: explanation,
	})
}

// errBlockFailed reports that a nested statement already failed and was
// reported on its own.
var errBlockFailed = errors.New("parser: block contains invalid statements")

func (c *converter) fail(err error) {
	c.fatal = true
	if errors.Is(err, errBlockFailed) {
		return
	}
	var u *unsupportedError
	if errors.As(err, &u) {
		c.report(typechecker.ErrUnsupportedSyntax, nil, spanFromNode(u.node), u.Error())
		return
	}
	c.report(typechecker.ErrInvalidSyntax, nil, ast.Span{}, err.Error())
}

// collectErrors reports every ERROR and MISSING node of a broken tree.
func (c *converter) collectErrors(node *sitter.Node) {
	if node == nil || !node.HasError() && !node.IsMissing() {
		return
	}
	switch {
	case node.IsMissing():
		c.report(typechecker.ErrInvalidSyntax, nil, spanFromNode(node), fmt.Sprintf("missing %s", node.Kind()))
		return
	case node.IsError():
		c.report(typechecker.ErrInvalidSyntax, nil, spanFromNode(node),
			fmt.Sprintf("unexpected %q", truncate(sliceContent(node, c.source), 20)))
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		c.collectErrors(node.Child(i))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

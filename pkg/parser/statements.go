package parser

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"sourcestep/interpreter-go/pkg/ast"
	"sourcestep/interpreter-go/pkg/typechecker"
)

// statements converts the named children of a program or block. A statement
// that cannot be converted is reported and dropped so later ones still get
// checked.
func (c *converter) statements(node *sitter.Node) []ast.Statement {
	body := make([]ast.Statement, 0, node.NamedChildCount())
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || isIgnorableNode(child) || child.Kind() == "empty_statement" {
			continue
		}
		stmt, err := c.statement(child)
		if err != nil {
			c.fail(err)
			continue
		}
		body = append(body, stmt)
	}
	return body
}

func (c *converter) statement(node *sitter.Node) (ast.Statement, error) {
	var (
		stmt ast.Statement
		err  error
	)
	switch node.Kind() {
	case "expression_statement":
		stmt, err = c.expressionStatement(node)
	case "lexical_declaration", "variable_declaration":
		stmt, err = c.variableDeclaration(node)
	case "function_declaration":
		stmt, err = c.functionDeclaration(node)
	case "return_statement":
		stmt, err = c.returnStatement(node)
	case "if_statement":
		stmt, err = c.ifStatement(node)
	case "statement_block":
		stmt, err = c.block(node)
	default:
		return nil, unsupported(node, "%s", node.Kind())
	}
	if err != nil {
		return nil, err
	}
	annotateStatement(stmt, node)
	if needsSemicolon(node) && !hasSemicolon(node) {
		end := spanFromNode(node).End
		c.report(typechecker.ErrMissingSemicolon, stmt, ast.Span{Start: end, End: end}, "missing semicolon")
	}
	return stmt, nil
}

func needsSemicolon(node *sitter.Node) bool {
	switch node.Kind() {
	case "expression_statement", "lexical_declaration", "variable_declaration", "return_statement":
		return true
	default:
		return false
	}
}

func hasSemicolon(node *sitter.Node) bool {
	n := node.ChildCount()
	if n == 0 {
		return false
	}
	last := node.Child(n - 1)
	return last != nil && last.Kind() == ";" && !last.IsMissing()
}

func (c *converter) expressionStatement(node *sitter.Node) (ast.Statement, error) {
	exprNode := firstNamedChild(node)
	if exprNode == nil {
		return nil, fmt.Errorf("parser: expression statement without expression")
	}
	expr, err := c.expression(exprNode)
	if err != nil {
		return nil, err
	}
	return ast.NewExpressionStatement(expr), nil
}

func (c *converter) variableDeclaration(node *sitter.Node) (ast.Statement, error) {
	kind := "var"
	if kindNode := node.ChildByFieldName("kind"); kindNode != nil {
		kind = sliceContent(kindNode, c.source)
	} else if first := node.Child(0); first != nil && !first.IsNamed() {
		kind = first.Kind()
	}
	var decls []*ast.VariableDeclarator
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || child.Kind() != "variable_declarator" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil || nameNode.Kind() != "identifier" {
			return nil, unsupported(child, "destructuring declaration")
		}
		id, err := c.identifier(nameNode)
		if err != nil {
			return nil, err
		}
		var init ast.Expression
		if valueNode := child.ChildByFieldName("value"); valueNode != nil {
			if init, err = c.expression(valueNode); err != nil {
				return nil, err
			}
		}
		decl := ast.NewVariableDeclarator(id, init)
		annotateSpan(decl, child)
		decls = append(decls, decl)
	}
	if len(decls) == 0 {
		return nil, fmt.Errorf("parser: declaration without declarators")
	}
	return ast.NewVariableDeclaration(kind, decls), nil
}

func (c *converter) functionDeclaration(node *sitter.Node) (ast.Statement, error) {
	if isGenerator(node) {
		return nil, unsupported(node, "generator function")
	}
	id, err := c.identifier(node.ChildByFieldName("name"))
	if err != nil {
		return nil, err
	}
	params, err := c.parameters(node.ChildByFieldName("parameters"))
	if err != nil {
		return nil, err
	}
	body, err := c.block(node.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	return ast.NewFunctionDeclaration(id, params, body, nil), nil
}

func (c *converter) returnStatement(node *sitter.Node) (ast.Statement, error) {
	var arg ast.Expression
	if argNode := firstNamedChild(node); argNode != nil {
		var err error
		if arg, err = c.expression(argNode); err != nil {
			return nil, err
		}
	}
	return ast.NewReturnStatement(arg), nil
}

func (c *converter) ifStatement(node *sitter.Node) (ast.Statement, error) {
	test, err := c.expression(node.ChildByFieldName("condition"))
	if err != nil {
		return nil, err
	}
	consequent, err := c.statement(node.ChildByFieldName("consequence"))
	if err != nil {
		return nil, err
	}
	var alternate ast.Statement
	if elseNode := node.ChildByFieldName("alternative"); elseNode != nil {
		inner := elseNode
		if elseNode.Kind() == "else_clause" {
			inner = firstNamedChild(elseNode)
		}
		if inner == nil {
			return nil, fmt.Errorf("parser: empty else clause")
		}
		if alternate, err = c.statement(inner); err != nil {
			return nil, err
		}
	}
	return ast.NewIfStatement(test, consequent, alternate), nil
}

func (c *converter) block(node *sitter.Node) (*ast.BlockStatement, error) {
	if node == nil {
		return nil, fmt.Errorf("parser: missing block")
	}
	if node.Kind() != "statement_block" {
		return nil, unsupported(node, "%s where a block was expected", node.Kind())
	}
	before := c.fatal
	body := c.statements(node)
	if c.fatal && !before {
		return nil, errBlockFailed
	}
	block := ast.NewBlockStatement(body)
	annotateSpan(block, node)
	return block, nil
}

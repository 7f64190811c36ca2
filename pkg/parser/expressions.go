package parser

import (
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"sourcestep/interpreter-go/pkg/ast"
)

var binaryOperators = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"<": true, "<=": true, ">": true, ">=": true,
	"==": true, "!=": true, "===": true, "!==": true,
}

var unaryOperators = map[string]bool{"-": true, "+": true, "!": true, "typeof": true}

func (c *converter) expression(node *sitter.Node) (ast.Expression, error) {
	if node == nil {
		return nil, fmt.Errorf("parser: missing expression")
	}
	var (
		expr ast.Expression
		err  error
	)
	switch node.Kind() {
	case "parenthesized_expression":
		inner := firstNamedChild(node)
		if inner == nil {
			return nil, fmt.Errorf("parser: empty parentheses")
		}
		return c.expression(inner)
	case "identifier":
		expr, err = c.identifier(node)
	case "undefined":
		expr = ast.NewIdentifier("undefined")
	case "number":
		expr, err = c.number(node)
	case "string":
		expr, err = c.str(node)
	case "true", "false":
		expr = ast.NewLiteral(node.Kind() == "true", node.Kind())
	case "null":
		expr = ast.NewLiteral(nil, "null")
	case "binary_expression":
		expr, err = c.binary(node)
	case "unary_expression":
		expr, err = c.unary(node)
	case "call_expression":
		expr, err = c.call(node)
	case "ternary_expression":
		expr, err = c.conditional(node)
	case "function_expression", "function":
		expr, err = c.functionExpression(node)
	case "arrow_function":
		expr, err = c.arrowFunction(node)
	default:
		return nil, unsupported(node, "%s", node.Kind())
	}
	if err != nil {
		return nil, err
	}
	annotateExpression(expr, node)
	return expr, nil
}

func (c *converter) identifier(node *sitter.Node) (*ast.Identifier, error) {
	if node == nil || node.Kind() != "identifier" {
		return nil, fmt.Errorf("parser: expected identifier")
	}
	id := ast.NewIdentifier(sliceContent(node, c.source))
	annotateSpan(id, node)
	return id, nil
}

func (c *converter) number(node *sitter.Node) (ast.Expression, error) {
	raw := sliceContent(node, c.source)
	value, err := parseNumber(raw)
	if err != nil {
		return nil, unsupported(node, "number literal %q", raw)
	}
	return ast.NewLiteral(value, raw), nil
}

func parseNumber(raw string) (float64, error) {
	lower := strings.ToLower(raw)
	if strings.HasSuffix(lower, "n") {
		return 0, fmt.Errorf("bigint literal")
	}
	if len(lower) > 1 && lower[0] == '0' && strings.ContainsAny(lower[1:2], "xob") {
		n, err := strconv.ParseInt(lower, 0, 64)
		return float64(n), err
	}
	return strconv.ParseFloat(strings.ReplaceAll(raw, "_", ""), 64)
}

func (c *converter) str(node *sitter.Node) (ast.Expression, error) {
	var b strings.Builder
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		text := sliceContent(child, c.source)
		switch child.Kind() {
		case "string_fragment":
			b.WriteString(text)
		case "escape_sequence":
			b.WriteString(unescape(text))
		default:
			return nil, unsupported(child, "%s in string", child.Kind())
		}
	}
	return ast.NewLiteral(b.String(), sliceContent(node, c.source)), nil
}

func unescape(seq string) string {
	switch seq {
	case `\'`:
		return "'"
	case `\"`:
		return `"`
	case "\\\n", "\\\r\n":
		return ""
	}
	if s, err := strconv.Unquote(`"` + seq + `"`); err == nil {
		return s
	}
	return strings.TrimPrefix(seq, `\`)
}

func (c *converter) binary(node *sitter.Node) (ast.Expression, error) {
	opNode := node.ChildByFieldName("operator")
	if opNode == nil {
		return nil, fmt.Errorf("parser: binary expression without operator")
	}
	op := opNode.Kind()
	left, err := c.expression(node.ChildByFieldName("left"))
	if err != nil {
		return nil, err
	}
	right, err := c.expression(node.ChildByFieldName("right"))
	if err != nil {
		return nil, err
	}
	switch {
	case op == "&&" || op == "||":
		return ast.NewLogicalExpression(op, left, right), nil
	case binaryOperators[op]:
		return ast.NewBinaryExpression(op, left, right), nil
	default:
		return nil, unsupported(opNode, "operator %s", op)
	}
}

func (c *converter) unary(node *sitter.Node) (ast.Expression, error) {
	opNode := node.ChildByFieldName("operator")
	if opNode == nil || !unaryOperators[opNode.Kind()] {
		return nil, unsupported(node, "unary operator %s", sliceContent(opNode, c.source))
	}
	operand, err := c.expression(node.ChildByFieldName("argument"))
	if err != nil {
		return nil, err
	}
	return ast.NewUnaryExpression(opNode.Kind(), operand), nil
}

func (c *converter) call(node *sitter.Node) (ast.Expression, error) {
	if node.ChildByFieldName("optional_chain") != nil {
		return nil, unsupported(node, "optional call")
	}
	callee, err := c.expression(node.ChildByFieldName("function"))
	if err != nil {
		return nil, err
	}
	argsNode := node.ChildByFieldName("arguments")
	if argsNode == nil || argsNode.Kind() != "arguments" {
		return nil, unsupported(node, "tagged template")
	}
	args := make([]ast.Expression, 0, argsNode.NamedChildCount())
	for i := uint(0); i < argsNode.NamedChildCount(); i++ {
		child := argsNode.NamedChild(i)
		if child == nil || isIgnorableNode(child) {
			continue
		}
		arg, err := c.expression(child)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return ast.NewCallExpression(callee, args), nil
}

func (c *converter) conditional(node *sitter.Node) (ast.Expression, error) {
	test, err := c.expression(node.ChildByFieldName("condition"))
	if err != nil {
		return nil, err
	}
	consequent, err := c.expression(node.ChildByFieldName("consequence"))
	if err != nil {
		return nil, err
	}
	alternate, err := c.expression(node.ChildByFieldName("alternative"))
	if err != nil {
		return nil, err
	}
	return ast.NewConditionalExpression(test, consequent, alternate), nil
}

func (c *converter) functionExpression(node *sitter.Node) (ast.Expression, error) {
	if isGenerator(node) || isAsync(node) {
		return nil, unsupported(node, "generator or async function")
	}
	var id *ast.Identifier
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		var err error
		if id, err = c.identifier(nameNode); err != nil {
			return nil, err
		}
	}
	params, err := c.parameters(node.ChildByFieldName("parameters"))
	if err != nil {
		return nil, err
	}
	body, err := c.block(node.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	return ast.NewFunctionExpression(id, params, body, nil), nil
}

// arrowFunction desugars an expression body into a block with a single
// return so both function forms share one shape.
func (c *converter) arrowFunction(node *sitter.Node) (ast.Expression, error) {
	if isAsync(node) {
		return nil, unsupported(node, "async arrow function")
	}
	var (
		params []*ast.Identifier
		err    error
	)
	if single := node.ChildByFieldName("parameter"); single != nil {
		id, idErr := c.identifier(single)
		if idErr != nil {
			return nil, unsupported(single, "arrow parameter %s", single.Kind())
		}
		params = []*ast.Identifier{id}
	} else if params, err = c.parameters(node.ChildByFieldName("parameters")); err != nil {
		return nil, err
	}
	bodyNode := node.ChildByFieldName("body")
	if bodyNode == nil {
		return nil, fmt.Errorf("parser: arrow function without body")
	}
	if bodyNode.Kind() == "statement_block" {
		body, err := c.block(bodyNode)
		if err != nil {
			return nil, err
		}
		return ast.NewFunctionExpression(nil, params, body, nil), nil
	}
	expr, err := c.expression(bodyNode)
	if err != nil {
		return nil, err
	}
	ret := ast.NewReturnStatement(expr)
	annotateSpan(ret, bodyNode)
	body := ast.NewBlockStatement([]ast.Statement{ret})
	annotateSpan(body, bodyNode)
	return ast.NewFunctionExpression(nil, params, body, nil), nil
}

func (c *converter) parameters(node *sitter.Node) ([]*ast.Identifier, error) {
	if node == nil {
		return nil, nil
	}
	params := make([]*ast.Identifier, 0, node.NamedChildCount())
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || isIgnorableNode(child) {
			continue
		}
		if child.Kind() != "identifier" {
			return nil, unsupported(child, "parameter %s", child.Kind())
		}
		id, err := c.identifier(child)
		if err != nil {
			return nil, err
		}
		params = append(params, id)
	}
	return params, nil
}

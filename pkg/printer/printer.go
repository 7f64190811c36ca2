// Package printer renders AST nodes back to JavaScript source. The output is
// for display only; it is never parsed again.
package printer

import (
	"fmt"
	"strconv"
	"strings"

	"sourcestep/interpreter-go/pkg/ast"
	"sourcestep/interpreter-go/pkg/runtime"
)

const indentUnit = "  "

// Print returns node as source text. Statements end with a semicolon;
// blocks are indented by two spaces.
func Print(node ast.Node) string {
	var p printer
	p.node(node)
	return strings.TrimRight(p.b.String(), "\n")
}

type printer struct {
	b      strings.Builder
	indent int
}

func (p *printer) line(s string) {
	p.b.WriteString(strings.Repeat(indentUnit, p.indent))
	p.b.WriteString(s)
	p.b.WriteByte('\n')
}

func (p *printer) node(node ast.Node) {
	switch n := node.(type) {
	case *ast.Program:
		for _, child := range n.Body {
			p.statement(child)
		}
	case ast.Statement:
		p.statement(n)
	case ast.Expression:
		p.b.WriteString(expr(n, 0))
	case *ast.VariableDeclarator:
		p.b.WriteString(declarator(n))
	case nil:
	default:
		panic(fmt.Sprintf("printer: unsupported node %T", node))
	}
}

func (p *printer) statement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		text := expr(s.Expression, 0)
		switch s.Expression.(type) {
		case *ast.FunctionExpression, *ast.FunctionDeclaration:
			text = "(" + text + ")"
		}
		p.line(text + ";")
	case *ast.VariableDeclaration:
		parts := make([]string, len(s.Declarations))
		for i, d := range s.Declarations {
			parts[i] = declarator(d)
		}
		p.line(s.Kind + " " + strings.Join(parts, ", ") + ";")
	case *ast.ReturnStatement:
		if s.Argument == nil {
			p.line("return;")
			return
		}
		p.line("return " + expr(s.Argument, 0) + ";")
	case *ast.BlockStatement:
		p.line("{")
		p.blockBody(s)
		p.line("}")
	case *ast.IfStatement:
		p.ifStatement(s, "")
	case *ast.FunctionDeclaration:
		p.line("function " + s.FunctionName() + "(" + params(s.Params) + ") {")
		p.blockBody(s.Body)
		p.line("}")
	default:
		panic(fmt.Sprintf("printer: unsupported statement %T", stmt))
	}
}

func (p *printer) blockBody(block *ast.BlockStatement) {
	if block == nil {
		return
	}
	p.indent++
	for _, child := range block.Body {
		p.statement(child)
	}
	p.indent--
}

func (p *printer) ifStatement(s *ast.IfStatement, prefix string) {
	p.line(prefix + "if (" + expr(s.Test, 0) + ") {")
	p.branch(s.Consequent)
	switch alt := s.Alternate.(type) {
	case nil:
		p.line("}")
	case *ast.IfStatement:
		p.ifStatement(alt, "} else ")
	default:
		p.line("} else {")
		p.branch(alt)
		p.line("}")
	}
}

func (p *printer) branch(stmt ast.Statement) {
	if block, ok := stmt.(*ast.BlockStatement); ok {
		p.blockBody(block)
		return
	}
	p.indent++
	p.statement(stmt)
	p.indent--
}

func declarator(d *ast.VariableDeclarator) string {
	if d.Init == nil {
		return d.ID.Name
	}
	return d.ID.Name + " = " + expr(d.Init, precAssign)
}

func params(ids []*ast.Identifier) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.Name
	}
	return strings.Join(names, ", ")
}

// Binding strength, loosest first.
const (
	precAssign = iota
	precConditional
	precOr
	precAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precUnary
	precCall
	precPrimary
)

func binaryPrecedence(op string) int {
	switch op {
	case "||":
		return precOr
	case "&&":
		return precAnd
	case "==", "!=", "===", "!==":
		return precEquality
	case "<", "<=", ">", ">=":
		return precRelational
	case "+", "-":
		return precAdditive
	default:
		return precMultiplicative
	}
}

// expr prints e, parenthesised when it binds looser than min.
func expr(e ast.Expression, min int) string {
	text, prec := exprPrec(e)
	if prec < min {
		return "(" + text + ")"
	}
	return text
}

func exprPrec(e ast.Expression) (string, int) {
	switch n := e.(type) {
	case *ast.Identifier:
		return n.Name, precPrimary
	case *ast.Literal:
		return literal(n), precPrimary
	case *ast.BinaryExpression:
		return infix(n.Operator, n.Left, n.Right)
	case *ast.LogicalExpression:
		return infix(n.Operator, n.Left, n.Right)
	case *ast.UnaryExpression:
		op := n.Operator
		operand := expr(n.Operand, precUnary)
		if op == "typeof" || strings.HasPrefix(operand, op) {
			op += " "
		}
		return op + operand, precUnary
	case *ast.CallExpression:
		args := make([]string, len(n.Arguments))
		for i, a := range n.Arguments {
			args[i] = expr(a, precAssign)
		}
		return expr(n.Callee, precCall) + "(" + strings.Join(args, ", ") + ")", precCall
	case *ast.ConditionalExpression:
		return expr(n.Test, precOr) + " ? " + expr(n.Consequent, precAssign) + " : " + expr(n.Alternate, precAssign), precConditional
	case *ast.FunctionExpression:
		return function(n.FunctionName(), n.Params, n.Body), precAssign
	case *ast.FunctionDeclaration:
		// A function value substituted back into the program is shown as
		// its defining declaration.
		return function(n.FunctionName(), n.Params, n.Body), precAssign
	default:
		panic(fmt.Sprintf("printer: unsupported expression %T", e))
	}
}

func function(name string, ids []*ast.Identifier, body *ast.BlockStatement) string {
	var p printer
	p.b.WriteString("function ")
	p.b.WriteString(name)
	p.b.WriteString("(" + params(ids) + ") {\n")
	p.blockBody(body)
	p.b.WriteString("}")
	return p.b.String()
}

// infix keeps left associativity: the right operand needs parentheses at
// equal precedence.
func infix(op string, left, right ast.Expression) (string, int) {
	prec := binaryPrecedence(op)
	return expr(left, prec) + " " + op + " " + expr(right, prec+1), prec
}

func literal(lit *ast.Literal) string {
	if lit.Raw != "" {
		return lit.Raw
	}
	switch v := lit.Value.(type) {
	case nil:
		return "null"
	case float64:
		return runtime.FormatNumber(v)
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

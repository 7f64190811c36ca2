package ast

import (
	"fmt"
	"reflect"
)

func isNilNode(n Node) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// Children returns the direct children of node in source order, including
// function parameters and bodies.
func Children(node Node) []Node {
	var out []Node
	add := func(n Node) {
		if !isNilNode(n) {
			out = append(out, n)
		}
	}
	switch n := node.(type) {
	case *Program:
		for _, stmt := range n.Body {
			add(stmt)
		}
	case *BlockStatement:
		for _, stmt := range n.Body {
			add(stmt)
		}
	case *ExpressionStatement:
		add(n.Expression)
	case *IfStatement:
		add(n.Test)
		add(n.Consequent)
		add(n.Alternate)
	case *FunctionDeclaration:
		add(n.ID)
		for _, p := range n.Params {
			add(p)
		}
		add(n.Body)
	case *FunctionExpression:
		add(n.ID)
		for _, p := range n.Params {
			add(p)
		}
		add(n.Body)
	case *VariableDeclaration:
		for _, d := range n.Declarations {
			add(d)
		}
	case *VariableDeclarator:
		add(n.ID)
		add(n.Init)
	case *ReturnStatement:
		add(n.Argument)
	case *CallExpression:
		add(n.Callee)
		for _, arg := range n.Arguments {
			add(arg)
		}
	case *UnaryExpression:
		add(n.Operand)
	case *BinaryExpression:
		add(n.Left)
		add(n.Right)
	case *LogicalExpression:
		add(n.Left)
		add(n.Right)
	case *ConditionalExpression:
		add(n.Test)
		add(n.Consequent)
		add(n.Alternate)
	case *Identifier, *Literal:
	default:
		panic(fmt.Sprintf("ast: unsupported node %T", node))
	}
	return out
}

// Walk visits node and its descendants in pre-order. Returning false from
// fn skips the children of the visited node.
func Walk(node Node, fn func(Node) bool) {
	if isNilNode(node) {
		return
	}
	if !fn(node) {
		return
	}
	for _, child := range Children(node) {
		Walk(child, fn)
	}
}

// reducible returns the children searched by Replace and FindNodeByID.
// Function bodies, parameters and declarator names are not part of it.
func reducible(node Node) []Node {
	switch n := node.(type) {
	case *FunctionDeclaration, *FunctionExpression:
		return nil
	case *VariableDeclaration:
		out := make([]Node, 0, len(n.Declarations))
		for _, d := range n.Declarations {
			if d.Init != nil {
				out = append(out, d.Init)
			}
		}
		return out
	case *VariableDeclarator:
		if n.Init == nil {
			return nil
		}
		return []Node{n.Init}
	default:
		return Children(node)
	}
}

// FindNodeByID searches root in pre-order for a node tagged id.
func FindNodeByID(root Node, id string) (Node, bool) {
	if isNilNode(root) || id == "" {
		return nil, false
	}
	if root.NodeID() == id {
		return root, true
	}
	for _, child := range reducible(root) {
		if found, ok := FindNodeByID(child, id); ok {
			return found, true
		}
	}
	return nil, false
}

// Replace returns a tree in which the first node equal to before (per
// NodesEqual) is substituted by after. Nodes on the path to the match are
// copied; every other subtree is shared with root. When nothing matches,
// root itself is returned.
func Replace(root, before, after Node) Node {
	out, _ := replace(root, before, after)
	return out
}

func replace(node, before, after Node) (Node, bool) {
	if isNilNode(node) {
		return node, false
	}
	if NodesEqual(node, before) {
		return after, true
	}
	switch n := node.(type) {
	case *Program:
		if body, ok := replaceStatements(n.Body, before, after); ok {
			cp := *n
			cp.Body = body
			return &cp, true
		}
	case *BlockStatement:
		if body, ok := replaceStatements(n.Body, before, after); ok {
			cp := *n
			cp.Body = body
			return &cp, true
		}
	case *ExpressionStatement:
		if expr, ok := replaceExpression(n.Expression, before, after); ok {
			cp := *n
			cp.Expression = expr
			return &cp, true
		}
	case *IfStatement:
		if test, ok := replaceExpression(n.Test, before, after); ok {
			cp := *n
			cp.Test = test
			return &cp, true
		}
		if cons, ok := replaceStatement(n.Consequent, before, after); ok {
			cp := *n
			cp.Consequent = cons
			return &cp, true
		}
		if alt, ok := replaceStatement(n.Alternate, before, after); ok {
			cp := *n
			cp.Alternate = alt
			return &cp, true
		}
	case *VariableDeclaration:
		for i, d := range n.Declarations {
			if d.Init == nil {
				continue
			}
			if init, ok := replaceExpression(d.Init, before, after); ok {
				decl := *d
				decl.Init = init
				cp := *n
				cp.Declarations = append([]*VariableDeclarator(nil), n.Declarations...)
				cp.Declarations[i] = &decl
				return &cp, true
			}
		}
	case *ReturnStatement:
		if arg, ok := replaceExpression(n.Argument, before, after); ok {
			cp := *n
			cp.Argument = arg
			return &cp, true
		}
	case *CallExpression:
		if callee, ok := replaceExpression(n.Callee, before, after); ok {
			cp := *n
			cp.Callee = callee
			return &cp, true
		}
		for i, arg := range n.Arguments {
			if repl, ok := replaceExpression(arg, before, after); ok {
				cp := *n
				cp.Arguments = append([]Expression(nil), n.Arguments...)
				cp.Arguments[i] = repl
				return &cp, true
			}
		}
	case *UnaryExpression:
		if operand, ok := replaceExpression(n.Operand, before, after); ok {
			cp := *n
			cp.Operand = operand
			return &cp, true
		}
	case *BinaryExpression:
		if left, ok := replaceExpression(n.Left, before, after); ok {
			cp := *n
			cp.Left = left
			return &cp, true
		}
		if right, ok := replaceExpression(n.Right, before, after); ok {
			cp := *n
			cp.Right = right
			return &cp, true
		}
	case *LogicalExpression:
		if left, ok := replaceExpression(n.Left, before, after); ok {
			cp := *n
			cp.Left = left
			return &cp, true
		}
		if right, ok := replaceExpression(n.Right, before, after); ok {
			cp := *n
			cp.Right = right
			return &cp, true
		}
	case *ConditionalExpression:
		if test, ok := replaceExpression(n.Test, before, after); ok {
			cp := *n
			cp.Test = test
			return &cp, true
		}
		if cons, ok := replaceExpression(n.Consequent, before, after); ok {
			cp := *n
			cp.Consequent = cons
			return &cp, true
		}
		if alt, ok := replaceExpression(n.Alternate, before, after); ok {
			cp := *n
			cp.Alternate = alt
			return &cp, true
		}
	case *FunctionDeclaration, *FunctionExpression, *VariableDeclarator, *Identifier, *Literal:
	default:
		panic(fmt.Sprintf("ast: unsupported node %T", node))
	}
	return node, false
}

func replaceExpression(expr Expression, before, after Node) (Expression, bool) {
	if isNilNode(expr) {
		return expr, false
	}
	out, ok := replace(expr, before, after)
	if !ok {
		return expr, false
	}
	repl, isExpr := out.(Expression)
	if !isExpr {
		panic(fmt.Sprintf("ast: cannot place %T in expression position", out))
	}
	return repl, true
}

func replaceStatement(stmt Statement, before, after Node) (Statement, bool) {
	if isNilNode(stmt) {
		return stmt, false
	}
	out, ok := replace(stmt, before, after)
	if !ok {
		return stmt, false
	}
	repl, isStmt := out.(Statement)
	if !isStmt {
		panic(fmt.Sprintf("ast: cannot place %T in statement position", out))
	}
	return repl, true
}

func replaceStatements(body []Statement, before, after Node) ([]Statement, bool) {
	for i, stmt := range body {
		if repl, ok := replaceStatement(stmt, before, after); ok {
			out := append([]Statement(nil), body...)
			out[i] = repl
			return out, true
		}
	}
	return body, false
}

// HoistedFunctions returns the function declarations that belong to the
// scope owning body: those directly in it and those nested in its blocks
// and if branches, in source order. Function bodies are not entered.
func HoistedFunctions(body []Statement) []*FunctionDeclaration {
	var out []*FunctionDeclaration
	var visit func(stmt Statement)
	visit = func(stmt Statement) {
		switch s := stmt.(type) {
		case *FunctionDeclaration:
			if s.ID != nil {
				out = append(out, s)
			}
		case *BlockStatement:
			if s == nil {
				return
			}
			for _, child := range s.Body {
				visit(child)
			}
		case *IfStatement:
			if s == nil {
				return
			}
			if s.Consequent != nil {
				visit(s.Consequent)
			}
			if s.Alternate != nil {
				visit(s.Alternate)
			}
		}
	}
	for _, stmt := range body {
		visit(stmt)
	}
	return out
}

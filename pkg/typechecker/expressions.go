package typechecker

import (
	"fmt"

	"sourcestep/interpreter-go/pkg/ast"
)

var (
	numberOrString = []Type{NumberT, StringT}
	numberOnly     = []Type{NumberT}
	booleanOnly    = []Type{BooleanT}
	functionOnly   = []Type{{Name: TypeFunction}}
)

var globalTypes = map[string]Type{
	"Infinity":  NumberT,
	"NaN":       NumberT,
	"undefined": UndefinedT,
}

// typeOf returns the static type of expr together with its proof node.
func (c *Checker) typeOf(scope ScopeID, expr ast.Expression) (Type, ast.Node) {
	switch e := expr.(type) {
	case *ast.Literal:
		return literalType(e), e
	case *ast.Identifier:
		return c.resolve(scope, e)
	case *ast.BinaryExpression:
		return c.checkBinary(scope, e), e
	case *ast.LogicalExpression:
		c.expect(scope, e.Left, booleanOnly, ErrMismatchedType)
		right, _ := c.typeOf(scope, e.Right)
		if right.Name == TypeBoolean {
			return BooleanT, e
		}
		return AnyT, e
	case *ast.UnaryExpression:
		switch e.Operator {
		case "-", "+":
			c.expect(scope, e.Operand, numberOnly, ErrMismatchedType)
			return NumberT, e
		case "!":
			c.expect(scope, e.Operand, booleanOnly, ErrMismatchedType)
			return BooleanT, e
		case "typeof":
			c.typeOf(scope, e.Operand)
			return StringT, e
		default:
			c.typeOf(scope, e.Operand)
			return AnyT, e
		}
	case *ast.ConditionalExpression:
		c.expect(scope, e.Test, booleanOnly, ErrMismatchedType)
		cons, _ := c.typeOf(scope, e.Consequent)
		alt, _ := c.typeOf(scope, e.Alternate)
		if cons.Name == alt.Name && cons.Name != TypeFunction {
			return cons, e
		}
		return AnyT, e
	case *ast.CallExpression:
		return c.checkCall(scope, e), e
	case *ast.FunctionExpression:
		c.pending = append(c.pending, pendingFunction{fn: e, parent: scope})
		return functionType(e), e
	case *ast.FunctionDeclaration:
		c.pending = append(c.pending, pendingFunction{fn: e, parent: scope})
		return functionType(e), e
	default:
		panic(fmt.Sprintf("typechecker: unsupported expression %T", expr))
	}
}

func literalType(lit *ast.Literal) Type {
	switch lit.Value.(type) {
	case float64:
		return NumberT
	case string:
		return StringT
	case bool:
		return BooleanT
	default:
		return UndefinedT
	}
}

func (c *Checker) resolve(scope ScopeID, id *ast.Identifier) (Type, ast.Node) {
	if sym, _, ok := c.graph.Lookup(scope, id.Name); ok {
		if v := c.graph.Vertex(c.current); v != nil {
			v.Usages = append(v.Usages, sym)
		}
		return sym.Type, sym.Proof
	}
	if typ, ok := globalTypes[id.Name]; ok {
		return typ, id
	}
	if _, ok := c.bindings[id.Name]; ok {
		return AnyT, id
	}
	c.syntaxError(ErrUndeclaredName, id, fmt.Sprintf("'%s' is not declared", id.Name))
	return AnyT, id
}

func (c *Checker) checkBinary(scope ScopeID, expr *ast.BinaryExpression) Type {
	switch expr.Operator {
	case "+":
		left, _ := c.expect(scope, expr.Left, numberOrString, ErrMismatchedType)
		right, _ := c.expect(scope, expr.Right, numberOrString, ErrMismatchedType)
		switch {
		case left.Name == TypeString || right.Name == TypeString:
			return StringT
		case left.Name == TypeNumber && right.Name == TypeNumber:
			return NumberT
		default:
			return AnyT
		}
	case "-", "*", "/", "%":
		c.expect(scope, expr.Left, numberOnly, ErrMismatchedType)
		c.expect(scope, expr.Right, numberOnly, ErrMismatchedType)
		return NumberT
	case "<", "<=", ">", ">=":
		c.expect(scope, expr.Left, numberOrString, ErrMismatchedType)
		c.expect(scope, expr.Right, numberOrString, ErrMismatchedType)
		return BooleanT
	case "===", "!==", "==", "!=":
		c.typeOf(scope, expr.Left)
		c.typeOf(scope, expr.Right)
		return BooleanT
	default:
		c.typeOf(scope, expr.Left)
		c.typeOf(scope, expr.Right)
		return AnyT
	}
}

func (c *Checker) checkCall(scope ScopeID, call *ast.CallExpression) Type {
	callee, proof := c.typeOf(scope, call.Callee)
	type arg struct {
		typ   Type
		proof ast.Node
	}
	args := make([]arg, len(call.Arguments))
	for i, a := range call.Arguments {
		args[i].typ, args[i].proof = c.typeOf(scope, a)
	}
	if callee.IsAny() {
		return AnyT
	}
	if callee.Name != TypeFunction {
		c.typeError(ErrNotCallable, call.Callee, proof, functionOnly, callee, "")
		return AnyT
	}
	if callee.Params != nil {
		if len(args) != len(callee.Params) {
			c.typeError(ErrArityMismatch, call, proof, nil, callee,
				fmt.Sprintf("expected %d arguments, got %d", len(callee.Params), len(args)))
		}
		for i, a := range args {
			if i >= len(callee.Params) {
				break
			}
			if !Accepts([]Type{callee.Params[i]}, a.typ) {
				c.typeError(ErrMismatchedType, call.Arguments[i], a.proof, []Type{callee.Params[i]}, a.typ, "")
			}
		}
	}
	if callee.Returns != nil {
		return *callee.Returns
	}
	return AnyT
}

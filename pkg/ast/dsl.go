package ast

import "strconv"

// Identifier and literal helpers.

func ID(name string) *Identifier {
	return NewIdentifier(name)
}

// TypedID returns an identifier carrying a declared type annotation.
func TypedID(name string, annotation *TypeAnnotation) *Identifier {
	id := NewIdentifier(name)
	id.Annotation = annotation
	return id
}

func Num(value float64) *Literal {
	return NewLiteral(value, strconv.FormatFloat(value, 'f', -1, 64))
}

func Str(value string) *Literal {
	return NewLiteral(value, strconv.Quote(value))
}

func Bool(value bool) *Literal {
	return NewLiteral(value, strconv.FormatBool(value))
}

func Null() *Literal {
	return NewLiteral(nil, "null")
}

// Type annotation helpers.

func Ty(name string) *TypeAnnotation {
	return &TypeAnnotation{Name: name}
}

func FnTy(returns *TypeAnnotation, params ...*TypeAnnotation) *TypeAnnotation {
	return &TypeAnnotation{Name: "function", Params: params, Returns: returns}
}

// Expression helpers.

func Bin(operator string, left, right Expression) *BinaryExpression {
	return NewBinaryExpression(operator, left, right)
}

func Logic(operator string, left, right Expression) *LogicalExpression {
	return NewLogicalExpression(operator, left, right)
}

func Unary(operator string, operand Expression) *UnaryExpression {
	return NewUnaryExpression(operator, operand)
}

func Call(callee Expression, args ...Expression) *CallExpression {
	if args == nil {
		args = []Expression{}
	}
	return NewCallExpression(callee, args)
}

func Cond(test, consequent, alternate Expression) *ConditionalExpression {
	return NewConditionalExpression(test, consequent, alternate)
}

func Lambda(params []string, body ...Statement) *FunctionExpression {
	return NewFunctionExpression(nil, idents(params), NewBlockStatement(body), nil)
}

// Statement helpers.

func Expr(expr Expression) *ExpressionStatement {
	return NewExpressionStatement(expr)
}

func Block(body ...Statement) *BlockStatement {
	return NewBlockStatement(body)
}

func If(test Expression, consequent, alternate Statement) *IfStatement {
	return NewIfStatement(test, consequent, alternate)
}

func Const(name string, init Expression) *VariableDeclaration {
	return NewVariableDeclaration("const", []*VariableDeclarator{NewVariableDeclarator(ID(name), init)})
}

// ConstTyped declares a constant whose identifier carries an annotation.
func ConstTyped(name string, annotation *TypeAnnotation, init Expression) *VariableDeclaration {
	return NewVariableDeclaration("const", []*VariableDeclarator{NewVariableDeclarator(TypedID(name, annotation), init)})
}

func Ret(argument Expression) *ReturnStatement {
	return NewReturnStatement(argument)
}

func Fn(name string, params []string, body ...Statement) *FunctionDeclaration {
	return NewFunctionDeclaration(ID(name), idents(params), NewBlockStatement(body), nil)
}

// FnTyped declares a function whose parameters are already built identifiers.
func FnTyped(name string, params []*Identifier, returnType *TypeAnnotation, body ...Statement) *FunctionDeclaration {
	return NewFunctionDeclaration(ID(name), params, NewBlockStatement(body), returnType)
}

func Prog(body ...Statement) *Program {
	return NewProgram(body)
}

func idents(names []string) []*Identifier {
	out := make([]*Identifier, 0, len(names))
	for _, name := range names {
		out = append(out, ID(name))
	}
	return out
}

package ast

type NodeType string

const (
	NodeProgram               NodeType = "Program"
	NodeBlockStatement        NodeType = "BlockStatement"
	NodeExpressionStatement   NodeType = "ExpressionStatement"
	NodeIfStatement           NodeType = "IfStatement"
	NodeFunctionDeclaration   NodeType = "FunctionDeclaration"
	NodeFunctionExpression    NodeType = "FunctionExpression"
	NodeVariableDeclaration   NodeType = "VariableDeclaration"
	NodeVariableDeclarator    NodeType = "VariableDeclarator"
	NodeReturnStatement       NodeType = "ReturnStatement"
	NodeCallExpression        NodeType = "CallExpression"
	NodeUnaryExpression       NodeType = "UnaryExpression"
	NodeBinaryExpression      NodeType = "BinaryExpression"
	NodeLogicalExpression     NodeType = "LogicalExpression"
	NodeConditionalExpression NodeType = "ConditionalExpression"
	NodeIdentifier            NodeType = "Identifier"
	NodeLiteral               NodeType = "Literal"
)

// Node is implemented by every AST node. NodeID returns the identity tag
// assigned at parse or synthesis time, or "" for untagged nodes.
type Node interface {
	NodeType() NodeType
	Span() Span
	NodeID() string
	isNode()
}

type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

type nodeImpl struct {
	Type NodeType `json:"type"`
	Tag  string   `json:"__id,omitempty"`
	Loc  Span     `json:"loc"`
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (n nodeImpl) Span() Span         { return n.Loc }
func (n nodeImpl) NodeID() string     { return n.Tag }
func (nodeImpl) isNode()              {}
func (n *nodeImpl) setSpan(span Span) { n.Loc = span }

// setID only tags untagged nodes; identity never changes once assigned.
func (n *nodeImpl) setID(id string) bool {
	if n.Tag != "" {
		return false
	}
	n.Tag = id
	return true
}

// Marker interfaces.

type Expression interface {
	Node
	expressionNode()
}

type expressionMarker struct{}

func (expressionMarker) expressionNode() {}

type Statement interface {
	Node
	statementNode()
}

type statementMarker struct{}

func (statementMarker) statementNode() {}

// Function is shared by declarations and function expressions.
type Function interface {
	Expression
	FunctionName() string
	FunctionParams() []*Identifier
	FunctionBody() *BlockStatement
	FunctionReturnType() *TypeAnnotation
}

// TypeAnnotation is an optional declared type attached to identifiers and
// function return positions. Name is one of number, string, boolean,
// function, undefined or any.
type TypeAnnotation struct {
	Name    string            `json:"name"`
	Params  []*TypeAnnotation `json:"params,omitempty"`
	Returns *TypeAnnotation   `json:"returns,omitempty"`
}

// Program

type Program struct {
	nodeImpl

	Body []Statement `json:"body"`
}

func NewProgram(body []Statement) *Program {
	return &Program{nodeImpl: newNodeImpl(NodeProgram), Body: body}
}

// Statements

type BlockStatement struct {
	nodeImpl
	statementMarker

	Body []Statement `json:"body"`
}

func NewBlockStatement(body []Statement) *BlockStatement {
	return &BlockStatement{nodeImpl: newNodeImpl(NodeBlockStatement), Body: body}
}

type ExpressionStatement struct {
	nodeImpl
	statementMarker

	Expression Expression `json:"expression"`
}

func NewExpressionStatement(expr Expression) *ExpressionStatement {
	return &ExpressionStatement{nodeImpl: newNodeImpl(NodeExpressionStatement), Expression: expr}
}

type IfStatement struct {
	nodeImpl
	statementMarker

	Test       Expression `json:"test"`
	Consequent Statement  `json:"consequent"`
	Alternate  Statement  `json:"alternate,omitempty"`
}

func NewIfStatement(test Expression, consequent, alternate Statement) *IfStatement {
	return &IfStatement{nodeImpl: newNodeImpl(NodeIfStatement), Test: test, Consequent: consequent, Alternate: alternate}
}

type FunctionDeclaration struct {
	nodeImpl
	statementMarker
	expressionMarker

	ID         *Identifier     `json:"id"`
	Params     []*Identifier   `json:"params"`
	Body       *BlockStatement `json:"body"`
	ReturnType *TypeAnnotation `json:"returnType,omitempty"`
}

func NewFunctionDeclaration(id *Identifier, params []*Identifier, body *BlockStatement, returnType *TypeAnnotation) *FunctionDeclaration {
	return &FunctionDeclaration{nodeImpl: newNodeImpl(NodeFunctionDeclaration), ID: id, Params: params, Body: body, ReturnType: returnType}
}

func (f *FunctionDeclaration) FunctionName() string {
	if f.ID == nil {
		return ""
	}
	return f.ID.Name
}
func (f *FunctionDeclaration) FunctionParams() []*Identifier       { return f.Params }
func (f *FunctionDeclaration) FunctionBody() *BlockStatement       { return f.Body }
func (f *FunctionDeclaration) FunctionReturnType() *TypeAnnotation { return f.ReturnType }

type VariableDeclarator struct {
	nodeImpl

	ID   *Identifier `json:"id"`
	Init Expression  `json:"init,omitempty"`
}

func NewVariableDeclarator(id *Identifier, init Expression) *VariableDeclarator {
	return &VariableDeclarator{nodeImpl: newNodeImpl(NodeVariableDeclarator), ID: id, Init: init}
}

type VariableDeclaration struct {
	nodeImpl
	statementMarker

	Kind         string                `json:"kind"`
	Declarations []*VariableDeclarator `json:"declarations"`
}

func NewVariableDeclaration(kind string, declarations []*VariableDeclarator) *VariableDeclaration {
	return &VariableDeclaration{nodeImpl: newNodeImpl(NodeVariableDeclaration), Kind: kind, Declarations: declarations}
}

type ReturnStatement struct {
	nodeImpl
	statementMarker

	Argument Expression `json:"argument,omitempty"`
}

func NewReturnStatement(argument Expression) *ReturnStatement {
	return &ReturnStatement{nodeImpl: newNodeImpl(NodeReturnStatement), Argument: argument}
}

// Expressions

type FunctionExpression struct {
	nodeImpl
	expressionMarker

	ID         *Identifier     `json:"id,omitempty"`
	Params     []*Identifier   `json:"params"`
	Body       *BlockStatement `json:"body"`
	ReturnType *TypeAnnotation `json:"returnType,omitempty"`
}

func NewFunctionExpression(id *Identifier, params []*Identifier, body *BlockStatement, returnType *TypeAnnotation) *FunctionExpression {
	return &FunctionExpression{nodeImpl: newNodeImpl(NodeFunctionExpression), ID: id, Params: params, Body: body, ReturnType: returnType}
}

func (f *FunctionExpression) FunctionName() string {
	if f.ID == nil {
		return ""
	}
	return f.ID.Name
}
func (f *FunctionExpression) FunctionParams() []*Identifier       { return f.Params }
func (f *FunctionExpression) FunctionBody() *BlockStatement       { return f.Body }
func (f *FunctionExpression) FunctionReturnType() *TypeAnnotation { return f.ReturnType }

type CallExpression struct {
	nodeImpl
	expressionMarker

	Callee    Expression   `json:"callee"`
	Arguments []Expression `json:"arguments"`
	// CallSite distinguishes repeated evaluations of the same call node.
	CallSite string `json:"__callSite,omitempty"`
}

func NewCallExpression(callee Expression, args []Expression) *CallExpression {
	return &CallExpression{nodeImpl: newNodeImpl(NodeCallExpression), Callee: callee, Arguments: args}
}

type UnaryExpression struct {
	nodeImpl
	expressionMarker

	Operator string     `json:"operator"`
	Operand  Expression `json:"argument"`
}

func NewUnaryExpression(operator string, operand Expression) *UnaryExpression {
	return &UnaryExpression{nodeImpl: newNodeImpl(NodeUnaryExpression), Operator: operator, Operand: operand}
}

type BinaryExpression struct {
	nodeImpl
	expressionMarker

	Operator string     `json:"operator"`
	Left     Expression `json:"left"`
	Right    Expression `json:"right"`
}

func NewBinaryExpression(operator string, left, right Expression) *BinaryExpression {
	return &BinaryExpression{nodeImpl: newNodeImpl(NodeBinaryExpression), Operator: operator, Left: left, Right: right}
}

type LogicalExpression struct {
	nodeImpl
	expressionMarker

	Operator string     `json:"operator"`
	Left     Expression `json:"left"`
	Right    Expression `json:"right"`
}

func NewLogicalExpression(operator string, left, right Expression) *LogicalExpression {
	return &LogicalExpression{nodeImpl: newNodeImpl(NodeLogicalExpression), Operator: operator, Left: left, Right: right}
}

type ConditionalExpression struct {
	nodeImpl
	expressionMarker

	Test       Expression `json:"test"`
	Consequent Expression `json:"consequent"`
	Alternate  Expression `json:"alternate"`
}

func NewConditionalExpression(test, consequent, alternate Expression) *ConditionalExpression {
	return &ConditionalExpression{nodeImpl: newNodeImpl(NodeConditionalExpression), Test: test, Consequent: consequent, Alternate: alternate}
}

type Identifier struct {
	nodeImpl
	expressionMarker

	Name       string          `json:"name"`
	Annotation *TypeAnnotation `json:"typeAnnotation,omitempty"`
}

func NewIdentifier(name string) *Identifier {
	return &Identifier{nodeImpl: newNodeImpl(NodeIdentifier), Name: name}
}

// Literal holds a float64, string, bool or nil payload.
type Literal struct {
	nodeImpl
	expressionMarker

	Value any    `json:"value"`
	Raw   string `json:"raw,omitempty"`
}

func NewLiteral(value any, raw string) *Literal {
	return &Literal{nodeImpl: newNodeImpl(NodeLiteral), Value: value, Raw: raw}
}

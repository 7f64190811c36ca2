package typechecker

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"sourcestep/interpreter-go/pkg/ast"
)

// Checker builds the control-flow graph of a program and reports syntax and
// type diagnostics. A Checker may be reused; every Check starts from scratch.
type Checker struct {
	logger   *slog.Logger
	bindings map[string]struct{}

	graph   *Graph
	diags   []Diagnostic
	current VertexID
	pending []pendingFunction
	// blocks holds the names declared in each open block of the body being
	// walked, outermost first.
	blocks []map[string]struct{}
}

type pendingFunction struct {
	fn     ast.Function
	parent ScopeID
}

// dangling is an outgoing edge whose target is the next statement built.
type dangling struct {
	from  VertexID
	label EdgeLabel
}

type Option func(*Checker)

// WithLogger routes analysis events to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBindings declares names that are injected at run time. They resolve
// to type any instead of being reported as undeclared.
func WithBindings(names ...string) Option {
	return func(c *Checker) {
		for _, name := range names {
			c.bindings[name] = struct{}{}
		}
	}
}

// New returns a checker instance.
func New(opts ...Option) *Checker {
	c := &Checker{
		logger:   slog.New(slog.DiscardHandler),
		bindings: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check analyzes a program with a fresh checker.
func Check(program *ast.Program, opts ...Option) (*Result, error) {
	return New(opts...).Check(program)
}

// Check analyzes program and returns its graph and diagnostics.
func (c *Checker) Check(program *ast.Program) (*Result, error) {
	if program == nil {
		return nil, errors.New("typechecker: program is nil")
	}
	c.graph = newGraph()
	c.diags = nil
	c.pending = nil
	c.current = NoVertex

	root := c.graph.addScope("program", NoScope, program, UndefinedT)
	c.blocks = []map[string]struct{}{{}}
	c.hoist(root.ID, program.Body)
	tails := c.buildSequence(root.ID, program.Body, nil)
	root.Exits = appendTails(root.Exits, tails)

	for len(c.pending) > 0 {
		next := c.pending[0]
		c.pending = c.pending[1:]
		c.analyzeFunction(next.parent, next.fn)
	}

	c.logger.Debug("analysis complete",
		"vertices", len(c.graph.Vertices),
		"scopes", len(c.graph.Scopes),
		"diagnostics", len(c.diags))
	return &Result{Graph: c.graph, Diagnostics: c.diags}, nil
}

func appendTails(exits []VertexID, tails []dangling) []VertexID {
	for _, t := range tails {
		seen := false
		for _, id := range exits {
			if id == t.from {
				seen = true
				break
			}
		}
		if !seen {
			exits = append(exits, t.from)
		}
	}
	return exits
}

func (c *Checker) analyzeFunction(parent ScopeID, fn ast.Function) {
	name := fn.FunctionName()
	if name == "" {
		name = "anonymous"
	}
	scope := c.graph.addScope(name, parent, fn, functionType(fn))
	c.blocks = []map[string]struct{}{{}}
	for _, param := range fn.FunctionParams() {
		typ, _ := FromAnnotation(param.Annotation)
		c.declare(scope.ID, &Symbol{Name: param.Name, DefinedAt: param.Span(), Type: typ, Proof: param}, param)
	}
	body := fn.FunctionBody()
	if body == nil {
		return
	}
	c.hoist(scope.ID, body.Body)
	tails := c.buildSequence(scope.ID, body.Body, nil)
	scope.Exits = appendTails(scope.Exits, tails)
}

// hoist makes the function declarations of a body visible before it is
// walked, including those nested in blocks. Duplicates are reported when
// the declaration itself is walked.
func (c *Checker) hoist(scope ScopeID, body []ast.Statement) {
	s := c.graph.Scope(scope)
	for _, fn := range ast.HoistedFunctions(body) {
		if _, exists := s.Symbols[fn.ID.Name]; !exists {
			s.Symbols[fn.ID.Name] = functionSymbol(fn)
		}
	}
}

func functionSymbol(fn *ast.FunctionDeclaration) *Symbol {
	return &Symbol{Name: fn.ID.Name, DefinedAt: fn.Span(), Type: functionType(fn), Proof: fn}
}

// declare binds sym in scope. A name may be declared once per block and
// may not shadow a name of an enclosing block of the same scope, since
// blocks share their scope's frame at run time. Sibling blocks such as
// if/else branches may reuse a name.
func (c *Checker) declare(scope ScopeID, sym *Symbol, node ast.Node) {
	for _, names := range c.blocks {
		if _, exists := names[sym.Name]; exists {
			c.syntaxError(ErrRedeclaration, node, fmt.Sprintf("'%s' is already declared in this scope", sym.Name))
			return
		}
	}
	c.blocks[len(c.blocks)-1][sym.Name] = struct{}{}
	c.graph.Scope(scope).Symbols[sym.Name] = sym
}

func functionType(fn ast.Function) Type {
	params := make([]Type, len(fn.FunctionParams()))
	for i, p := range fn.FunctionParams() {
		params[i], _ = FromAnnotation(p.Annotation)
	}
	t := Type{Name: TypeFunction, Params: params}
	if ret, ok := FromAnnotation(fn.FunctionReturnType()); ok {
		t.Returns = &ret
	}
	return t
}

func (c *Checker) buildSequence(scope ScopeID, body []ast.Statement, incoming []dangling) []dangling {
	for _, stmt := range body {
		incoming = c.buildStatement(scope, stmt, incoming)
	}
	return incoming
}

func (c *Checker) buildStatement(scope ScopeID, stmt ast.Statement, incoming []dangling) []dangling {
	if block, ok := stmt.(*ast.BlockStatement); ok {
		c.blocks = append(c.blocks, map[string]struct{}{})
		out := c.buildSequence(scope, block.Body, incoming)
		c.blocks = c.blocks[:len(c.blocks)-1]
		return out
	}
	v := c.graph.addVertex(scope, stmt)
	for _, d := range incoming {
		c.graph.connect(d.from, d.label, v.ID)
	}
	c.current = v.ID

	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		c.typeOf(scope, s.Expression)
		return []dangling{{from: v.ID, label: EdgeNext}}
	case *ast.VariableDeclaration:
		for _, decl := range s.Declarations {
			c.checkDeclarator(scope, decl)
		}
		return []dangling{{from: v.ID, label: EdgeNext}}
	case *ast.FunctionDeclaration:
		if s.ID != nil {
			sym := c.graph.Scope(scope).Symbols[s.ID.Name]
			if sym == nil || sym.Proof != ast.Node(s) {
				sym = functionSymbol(s)
			}
			c.declare(scope, sym, s)
		}
		c.pending = append(c.pending, pendingFunction{fn: s, parent: scope})
		return []dangling{{from: v.ID, label: EdgeNext}}
	case *ast.IfStatement:
		c.expect(scope, s.Test, []Type{BooleanT}, ErrMismatchedType)
		out := c.buildStatement(scope, s.Consequent, []dangling{{from: v.ID, label: EdgeConsequent}})
		alternate := []dangling{{from: v.ID, label: EdgeAlternate}}
		if s.Alternate != nil {
			alternate = c.buildStatement(scope, s.Alternate, alternate)
		}
		return append(out, alternate...)
	case *ast.ReturnStatement:
		c.checkReturn(scope, s)
		owner := c.graph.Scope(scope)
		owner.Exits = append(owner.Exits, v.ID)
		return nil
	default:
		panic(fmt.Sprintf("typechecker: unsupported statement %T", stmt))
	}
}

func (c *Checker) checkDeclarator(scope ScopeID, decl *ast.VariableDeclarator) {
	typ, proof := UndefinedT, ast.Node(decl)
	if decl.Init != nil {
		typ, proof = c.typeOf(scope, decl.Init)
	}
	if declared, ok := FromAnnotation(decl.ID.Annotation); ok {
		if decl.Init != nil && !Accepts([]Type{declared}, typ) {
			c.typeError(ErrMismatchedType, decl.Init, proof, []Type{declared}, typ, "")
		}
		typ, proof = declared, decl.ID
	}
	c.declare(scope, &Symbol{Name: decl.ID.Name, DefinedAt: decl.Span(), Type: typ, Proof: proof}, decl)
}

func (c *Checker) checkReturn(scope ScopeID, stmt *ast.ReturnStatement) {
	owner := c.graph.Scope(scope)
	if owner.Parent == NoScope {
		c.syntaxError(ErrReturnOutsideFunction, stmt, "return outside of a function")
		if stmt.Argument != nil {
			c.typeOf(scope, stmt.Argument)
		}
		return
	}
	got, proof := UndefinedT, ast.Node(stmt)
	var use ast.Node = stmt
	if stmt.Argument != nil {
		got, proof = c.typeOf(scope, stmt.Argument)
		use = stmt.Argument
	}
	if owner.Type.Returns != nil && !Accepts([]Type{*owner.Type.Returns}, got) {
		c.typeError(ErrMismatchedType, use, proof, []Type{*owner.Type.Returns}, got, "")
	}
}

// expect types expr and reports a diagnostic when it falls outside expected.
func (c *Checker) expect(scope ScopeID, expr ast.Expression, expected []Type, errType ErrorType) (Type, ast.Node) {
	got, proof := c.typeOf(scope, expr)
	if !Accepts(expected, got) {
		c.typeError(errType, expr, proof, expected, got, "")
	}
	return got, proof
}

func (c *Checker) syntaxError(errType ErrorType, node ast.Node, explanation string) {
	c.diags = append(c.diags, Diagnostic{Kind: KindSyntax, Type: errType, Node: node, Explanation: explanation})
}

func (c *Checker) typeError(errType ErrorType, node, proof ast.Node, expected []Type, got Type, explanation string) {
	c.diags = append(c.diags, Diagnostic{
		Kind:        KindType,
		Type:        errType,
		Node:        node,
		Expected:    expected,
		Got:         got,
		Proof:       proof,
		Explanation: explanation,
	})
}

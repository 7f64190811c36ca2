package interpreter

import (
	"fmt"
	"log/slog"

	"sourcestep/interpreter-go/pkg/ast"
	"sourcestep/interpreter-go/pkg/runtime"
)

// Strategy selects what a suspension exposes besides the Snapshot.
type Strategy int

const (
	// StateThreaded only updates the Snapshot.
	StateThreaded Strategy = iota
	// Substitution also rebuilds the program with every reduced
	// sub-expression replaced by its value.
	Substitution
)

func (s Strategy) String() string {
	if s == Substitution {
		return "substitution"
	}
	return "state-threaded"
}

// Step describes one suspension.
type Step struct {
	Node    ast.Node
	Phase   Phase
	Value   runtime.Value
	Program *ast.Program
}

type Option func(*Evaluator)

func WithStrategy(strategy Strategy) Option {
	return func(e *Evaluator) { e.strategy = strategy }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxSteps stops evaluation with a runtime error after n suspensions.
// Zero means unlimited.
func WithMaxSteps(n int) Option {
	return func(e *Evaluator) { e.maxSteps = n }
}

// WithIDGenerator sets the generator used to tag untagged program nodes and
// synthesized literals.
func WithIDGenerator(ids *ast.IDGenerator) Option {
	return func(e *Evaluator) {
		if ids != nil {
			e.ids = ids
		}
	}
}

// Evaluator is a resumable tree walker. All pending work lives on an
// explicit frame stack; every Resume runs until the next suspension.
type Evaluator struct {
	snap     *Snapshot
	strategy Strategy
	logger   *slog.Logger
	ids      *ast.IDGenerator
	maxSteps int
	steps    int
	stack    []*frame
}

type frame struct {
	node ast.Node
	expr bool
	pc   int
	idx  int

	values []runtime.Value
	result runtime.Value
	done   bool

	body     []ast.Statement
	savedEnv *runtime.Environment

	call     *ast.CallExpression
	inCall   bool
	failed   bool
	returned bool
	pending  bool
}

// New returns an evaluator positioned before the first suspension of the
// snapshot's program.
func New(snap *Snapshot, opts ...Option) *Evaluator {
	e := &Evaluator{
		snap:   snap,
		logger: slog.New(slog.DiscardHandler),
		ids:    ast.NewIDGenerator("v"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if snap.Program == nil {
		snap.Running = false
		snap.Phase = PhaseDone
		return e
	}
	ast.AssignIDs(snap.Program, e.ids)
	if e.strategy == Substitution && snap.Reduced == nil {
		snap.Reduced = snap.Program
	}
	snap.Running = true
	e.stack = []*frame{{node: snap.Program}}
	return e
}

// ForStatement prepares an evaluator that runs a single statement against
// snap, keeping its environment and accumulated errors.
func ForStatement(stmt ast.Statement, snap *Snapshot, opts ...Option) *Evaluator {
	snap.Program = ast.NewProgram([]ast.Statement{stmt})
	snap.Reduced = snap.Program
	snap.CallStack = nil
	snap.Value = runtime.Undefined
	return New(snap, opts...)
}

// EvalStatement runs stmt to completion and returns its final value.
func EvalStatement(stmt ast.Statement, snap *Snapshot, opts ...Option) runtime.Value {
	e := ForStatement(stmt, snap, opts...)
	for e.Running() {
		e.Resume()
	}
	return snap.Value
}

func (e *Evaluator) Snapshot() *Snapshot { return e.snap }
func (e *Evaluator) Running() bool       { return e.snap.Running }
func (e *Evaluator) Steps() int          { return e.steps }

// Result is the last produced value.
func (e *Evaluator) Result() runtime.Value { return e.snap.Value }

// Resume runs until the next suspension and reports it. When no suspension
// remains the evaluator finishes and returns false; further calls keep
// returning the final step.
func (e *Evaluator) Resume() (Step, bool) {
	if !e.snap.Running {
		return e.doneStep(), false
	}
	if e.maxSteps > 0 && e.steps >= e.maxSteps {
		e.snap.Errors = append(e.snap.Errors, RuntimeError{
			Type:        ErrStepLimit,
			Node:        e.snap.Node,
			Explanation: fmt.Sprintf("stopped after %d steps", e.maxSteps),
		})
		e.snap.Value = runtime.Never
		e.stack = nil
		return e.finish(), false
	}
	for len(e.stack) > 0 {
		if step, ok := e.exec(e.stack[len(e.stack)-1]); ok {
			e.steps++
			e.logger.Debug("resume",
				"step", e.steps,
				"phase", step.Phase.String(),
				"node", string(step.Node.NodeType()),
				"value", inspect(step.Value))
			return step, true
		}
	}
	return e.finish(), false
}

func inspect(v runtime.Value) string {
	if v == nil {
		return ""
	}
	return runtime.Inspect(v)
}

func (e *Evaluator) finish() Step {
	e.snap.Running = false
	e.snap.Phase = PhaseDone
	e.logger.Debug("finished", "steps", e.steps, "value", inspect(e.snap.Value), "errors", len(e.snap.Errors))
	return e.doneStep()
}

func (e *Evaluator) doneStep() Step {
	return Step{Node: e.snap.Node, Phase: PhaseDone, Value: e.snap.Value, Program: e.snap.Reduced}
}

func (e *Evaluator) pushStatement(stmt ast.Statement) {
	e.stack = append(e.stack, &frame{node: stmt})
}

func (e *Evaluator) pushExpression(expr ast.Expression) {
	e.stack = append(e.stack, &frame{node: expr, expr: true})
}

// pop removes the top frame and hands v to its parent.
func (e *Evaluator) pop(v runtime.Value) {
	e.stack = e.stack[:len(e.stack)-1]
	if v != nil && len(e.stack) > 0 {
		parent := e.stack[len(e.stack)-1]
		parent.values = append(parent.values, v)
	}
}

func (e *Evaluator) enter(f *frame) Step {
	f.pc++
	e.snap.Node = f.node
	e.snap.Phase = PhaseEnter
	step := Step{Node: f.node, Phase: PhaseEnter}
	if e.strategy == Substitution {
		step.Program = e.snap.Reduced
	}
	return step
}

// produce records the value of an expression frame and suspends on it. The
// frame is popped on the next resume.
func (e *Evaluator) produce(f *frame, v runtime.Value) Step {
	f.result = v
	f.done = true
	node := f.node
	if f.call != nil {
		node = f.call
	}
	e.snap.Node = node
	e.snap.Phase = PhaseValue
	e.snap.Value = v
	step := Step{Node: node, Phase: PhaseValue, Value: v}
	if e.strategy == Substitution {
		replaced := ast.Replace(e.snap.Reduced, node, CreateNode(v, e.ids))
		e.snap.Reduced = replaced.(*ast.Program)
		step.Program = e.snap.Reduced
	}
	return step
}

func (e *Evaluator) runtimeError(errType string, node ast.Node, explanation string) {
	e.snap.Errors = append(e.snap.Errors, RuntimeError{Type: errType, Node: node, Explanation: explanation})
	e.logger.Debug("runtime error", "type", errType, "explanation", explanation)
}

// hoist binds the function declarations of a program or function body,
// including those nested in its blocks, before the body runs. Blocks share
// the frame of the body they belong to.
func (e *Evaluator) hoist(body []ast.Statement) {
	for _, fn := range ast.HoistedFunctions(body) {
		e.snap.SetVar(fn.ID.Name, &runtime.FunctionValue{Node: fn, Closure: e.snap.Env})
	}
}

// resolveForeign turns a named reference to a host primitive into the
// primitive itself. Host functions and other values stay references.
func (e *Evaluator) resolveForeign(v runtime.Value) runtime.Value {
	ref, ok := v.(runtime.ForeignValue)
	if !ok || ref.Name == "" {
		return v
	}
	switch host := e.snap.Unbox(ref).(type) {
	case nil:
		return runtime.Undefined
	case float64, float32, int, int64, int32, uint, uint64, uint32, string, bool:
		return runtime.Box(host)
	default:
		return v
	}
}

// unwind pops frames up to the innermost active call and hands it v. A
// return outside any call ends the program.
func (e *Evaluator) unwind(v runtime.Value) {
	for len(e.stack) > 0 {
		top := e.stack[len(e.stack)-1]
		if top.inCall {
			top.result = v
			top.returned = true
			return
		}
		e.stack = e.stack[:len(e.stack)-1]
	}
	e.snap.Value = v
}

// exec performs one transition of f. It reports true when the transition
// ended in a suspension.
func (e *Evaluator) exec(f *frame) (Step, bool) {
	if f.done {
		e.pop(f.result)
		return Step{}, false
	}
	switch n := f.node.(type) {
	case *ast.Program:
		return e.execBody(f, n.Body)
	case *ast.ExpressionStatement:
		switch f.pc {
		case 0:
			return e.enter(f), true
		case 1:
			f.pc++
			e.pushExpression(n.Expression)
		default:
			e.pop(nil)
		}
	case *ast.VariableDeclaration:
		if f.pc == 0 {
			return e.enter(f), true
		}
		if f.pending {
			e.snap.SetVar(n.Declarations[f.idx].ID.Name, f.values[len(f.values)-1])
			f.pending = false
			f.idx++
		}
		for f.idx < len(n.Declarations) {
			decl := n.Declarations[f.idx]
			if decl.Init == nil {
				e.snap.SetVar(decl.ID.Name, runtime.Undefined)
				f.idx++
				continue
			}
			f.pending = true
			e.pushExpression(decl.Init)
			return Step{}, false
		}
		e.pop(nil)
	case *ast.FunctionDeclaration:
		if f.expr {
			return e.execFunction(f, n)
		}
		if f.pc == 0 {
			return e.enter(f), true
		}
		if n.ID != nil {
			if _, ok := e.snap.Env.Frames()[0][n.ID.Name]; !ok {
				e.snap.SetVar(n.ID.Name, &runtime.FunctionValue{Node: n, Closure: e.snap.Env})
			}
		}
		e.pop(nil)
	case *ast.IfStatement:
		switch f.pc {
		case 0:
			return e.enter(f), true
		case 1:
			f.pc++
			e.pushExpression(n.Test)
		case 2:
			f.pc++
			if runtime.IsTruthy(f.values[0]) {
				e.pushStatement(n.Consequent)
			} else if n.Alternate != nil {
				e.pushStatement(n.Alternate)
			}
		default:
			e.pop(nil)
		}
	case *ast.BlockStatement:
		switch f.pc {
		case 0:
			return e.enter(f), true
		default:
			if f.idx < len(n.Body) {
				f.idx++
				e.pushStatement(n.Body[f.idx-1])
				return Step{}, false
			}
			e.pop(nil)
		}
	case *ast.ReturnStatement:
		switch f.pc {
		case 0:
			return e.enter(f), true
		case 1:
			f.pc++
			if n.Argument != nil {
				e.pushExpression(n.Argument)
			} else {
				f.values = append(f.values, runtime.Undefined)
			}
		default:
			e.unwind(f.values[0])
		}
	case *ast.Literal:
		if f.pc == 0 {
			return e.enter(f), true
		}
		return e.produce(f, literalValue(n)), true
	case *ast.Identifier:
		if f.pc == 0 {
			return e.enter(f), true
		}
		v, ok := e.snap.Env.Lookup(n.Name)
		if !ok {
			v = runtime.Never
			if n.Name == "undefined" {
				v = runtime.Undefined
			}
		}
		return e.produce(f, e.resolveForeign(v)), true
	case *ast.FunctionExpression:
		return e.execFunction(f, n)
	case *ast.BinaryExpression:
		switch f.pc {
		case 0:
			return e.enter(f), true
		case 1:
			f.pc++
			e.pushExpression(n.Left)
		case 2:
			f.pc++
			e.pushExpression(n.Right)
		default:
			v, err := applyBinary(n.Operator, f.values[0], f.values[1])
			if err != nil {
				e.runtimeError(ErrOperator, n, err.Error())
			}
			return e.produce(f, v), true
		}
	case *ast.LogicalExpression:
		switch f.pc {
		case 0:
			return e.enter(f), true
		case 1:
			f.pc++
			e.pushExpression(n.Left)
		case 2:
			left := f.values[0]
			truthy := runtime.IsTruthy(left)
			if (n.Operator == "&&" && !truthy) || (n.Operator == "||" && truthy) {
				return e.produce(f, left), true
			}
			f.pc++
			e.pushExpression(n.Right)
		default:
			return e.produce(f, f.values[1]), true
		}
	case *ast.UnaryExpression:
		switch f.pc {
		case 0:
			return e.enter(f), true
		case 1:
			f.pc++
			e.pushExpression(n.Operand)
		default:
			v, err := applyUnary(n.Operator, f.values[0])
			if err != nil {
				e.runtimeError(ErrOperator, n, err.Error())
			}
			return e.produce(f, v), true
		}
	case *ast.ConditionalExpression:
		switch f.pc {
		case 0:
			return e.enter(f), true
		case 1:
			f.pc++
			e.pushExpression(n.Test)
		case 2:
			f.pc++
			if runtime.IsTruthy(f.values[0]) {
				e.pushExpression(n.Consequent)
			} else {
				e.pushExpression(n.Alternate)
			}
		default:
			return e.produce(f, f.values[1]), true
		}
	case *ast.CallExpression:
		return e.execCall(f, n)
	default:
		panic(fmt.Sprintf("interpreter: unsupported node %T", f.node))
	}
	return Step{}, false
}

func (e *Evaluator) execBody(f *frame, body []ast.Statement) (Step, bool) {
	if f.pc == 0 {
		f.pc++
		e.hoist(body)
	}
	if f.idx < len(body) {
		f.idx++
		e.pushStatement(body[f.idx-1])
		return Step{}, false
	}
	e.pop(nil)
	return Step{}, false
}

func (e *Evaluator) execFunction(f *frame, fn ast.Function) (Step, bool) {
	if f.pc == 0 {
		return e.enter(f), true
	}
	return e.produce(f, &runtime.FunctionValue{Node: fn, Closure: e.snap.Env}), true
}

func (e *Evaluator) execCall(f *frame, n *ast.CallExpression) (Step, bool) {
	switch f.pc {
	case 0:
		return e.enter(f), true
	case 1:
		f.pc++
		e.pushExpression(n.Callee)
		return Step{}, false
	case 2:
		if len(f.values) == 1 && !f.failed && !e.callable(f.values[0]) {
			f.failed = true
			e.runtimeError(ErrCall, n, fmt.Sprintf("%s is not a function", runtime.Inspect(f.values[0])))
		}
		if next := len(f.values) - 1; next < len(n.Arguments) {
			e.pushExpression(n.Arguments[next])
			return Step{}, false
		}
		f.pc++
		return e.apply(f, n)
	default:
		if !f.returned && f.idx < len(f.body) {
			f.idx++
			e.pushStatement(f.body[f.idx-1])
			return Step{}, false
		}
		result := runtime.Undefined
		if f.returned {
			result = f.result
		}
		e.snap.Env = f.savedEnv
		e.snap.CallStack = e.snap.CallStack[:len(e.snap.CallStack)-1]
		f.inCall = false
		return e.produce(f, result), true
	}
}

// callable reports whether v can be applied. A reference to a host value
// is callable only when the host value is a Go func.
func (e *Evaluator) callable(v runtime.Value) bool {
	switch fn := v.(type) {
	case *runtime.FunctionValue:
		return true
	case runtime.ForeignValue:
		return isHostFunc(e.snap.Unbox(fn))
	default:
		return false
	}
}

func (e *Evaluator) apply(f *frame, n *ast.CallExpression) (Step, bool) {
	if f.failed {
		// Already reported when the callee's value arrived.
		return e.produce(f, runtime.Never), true
	}
	callee, args := f.values[0], f.values[1:]
	switch fn := callee.(type) {
	case *runtime.FunctionValue:
		f.call = ast.WithCallSite(n, ast.NewCallSiteTag())
		e.snap.CallStack = append(e.snap.CallStack, f.call)
		f.savedEnv = e.snap.Env
		env := fn.Closure.Extend()
		for i, param := range fn.Node.FunctionParams() {
			arg := runtime.Undefined
			if i < len(args) {
				arg = args[i]
			}
			env.SetVar(param.Name, arg)
		}
		e.snap.Env = env
		f.inCall = true
		if body := fn.Node.FunctionBody(); body != nil {
			f.body = body.Body
		}
		e.hoist(f.body)
		return Step{}, false
	case runtime.ForeignValue:
		host := e.snap.Unbox(fn)
		if host == nil {
			return e.callError(f, n, fmt.Sprintf("%s is not a function", runtime.Inspect(callee)))
		}
		raw := make([]any, len(args))
		for i, arg := range args {
			raw[i] = e.snap.Unbox(arg)
		}
		result, err := callForeign(host, raw)
		if err != nil {
			return e.callError(f, n, err.Error())
		}
		return e.produce(f, runtime.Box(result)), true
	default:
		return e.callError(f, n, fmt.Sprintf("%s is not a function", runtime.Inspect(callee)))
	}
}

func (e *Evaluator) callError(f *frame, n *ast.CallExpression, explanation string) (Step, bool) {
	e.runtimeError(ErrCall, n, explanation)
	return e.produce(f, runtime.Never), true
}

func literalValue(lit *ast.Literal) runtime.Value {
	switch v := lit.Value.(type) {
	case float64:
		return runtime.NumberValue{Val: v}
	case string:
		return runtime.StringValue{Val: v}
	case bool:
		return runtime.BoolValue{Val: v}
	case nil:
		return runtime.Undefined
	default:
		panic(fmt.Sprintf("interpreter: unsupported literal %T", lit.Value))
	}
}

package interpreter

import (
	"errors"
	"math"
	"testing"

	"sourcestep/interpreter-go/pkg/ast"
	"sourcestep/interpreter-go/pkg/runtime"
)

func run(t *testing.T, prog *ast.Program, bindings runtime.Bindings, opts ...Option) (*Snapshot, []Step) {
	t.Helper()
	snap := NewSnapshot("", prog)
	snap.Init(bindings)
	ev := New(snap, opts...)
	var steps []Step
	for i := 0; ev.Running(); i++ {
		if i > 10000 {
			t.Fatalf("evaluation did not terminate")
		}
		step, ok := ev.Resume()
		if ok {
			steps = append(steps, step)
		}
	}
	return snap, steps
}

func asNumber(t *testing.T, v runtime.Value) float64 {
	t.Helper()
	n, ok := v.(runtime.NumberValue)
	if !ok {
		t.Fatalf("expected number, got %s", runtime.Inspect(v))
	}
	return n.Val
}

func TestSuspensionOrderForBinaryExpression(t *testing.T) {
	prog := ast.Prog(ast.Expr(ast.Bin("+", ast.Num(1), ast.Num(2))))
	snap, steps := run(t, prog, nil)

	want := []struct {
		kind  ast.NodeType
		phase Phase
	}{
		{ast.NodeExpressionStatement, PhaseEnter},
		{ast.NodeBinaryExpression, PhaseEnter},
		{ast.NodeLiteral, PhaseEnter},
		{ast.NodeLiteral, PhaseValue},
		{ast.NodeLiteral, PhaseEnter},
		{ast.NodeLiteral, PhaseValue},
		{ast.NodeBinaryExpression, PhaseValue},
	}
	if len(steps) != len(want) {
		t.Fatalf("expected %d suspensions, got %d", len(want), len(steps))
	}
	for i, w := range want {
		if steps[i].Node.NodeType() != w.kind || steps[i].Phase != w.phase {
			t.Fatalf("step %d: got %s/%s, want %s/%s", i, steps[i].Node.NodeType(), steps[i].Phase, w.kind, w.phase)
		}
	}
	if !runtime.Equal(snap.Value, runtime.Box(3.0)) {
		t.Fatalf("expected 3, got %s", runtime.Inspect(snap.Value))
	}
	if snap.Running || snap.Phase != PhaseDone {
		t.Fatalf("expected finished snapshot")
	}
}

func TestDoneIsTerminal(t *testing.T) {
	snap := NewSnapshot("1;", ast.Prog(ast.Expr(ast.Num(1))))
	ev := New(snap)
	for ev.Running() {
		ev.Resume()
	}
	steps := ev.Steps()
	if _, ok := ev.Resume(); ok {
		t.Fatalf("resume after done must not suspend")
	}
	if ev.Steps() != steps || snap.Running {
		t.Fatalf("done state changed")
	}
}

func TestCallingNonFunctionAccumulatesError(t *testing.T) {
	call := ast.Call(ast.Num(2), ast.Num(3))
	snap, steps := run(t, ast.Prog(ast.Expr(call)), nil)
	if len(snap.Errors) != 1 {
		t.Fatalf("expected one call error, got %d", len(snap.Errors))
	}
	if snap.Errors[0].Type != ErrCall || snap.Errors[0].Node != ast.Node(call) {
		t.Fatalf("unexpected error %+v", snap.Errors[0])
	}
	if snap.Value != runtime.Never {
		t.Fatalf("expected never, got %s", runtime.Inspect(snap.Value))
	}
	last := steps[len(steps)-1]
	if last.Phase != PhaseValue || last.Node.NodeType() != ast.NodeCallExpression {
		t.Fatalf("expected error at the call value, got %s/%s", last.Node.NodeType(), last.Phase)
	}
}

func TestEvaluationContinuesAfterCallError(t *testing.T) {
	prog := ast.Prog(
		ast.Expr(ast.Call(ast.Str("x"))),
		ast.Expr(ast.Call(ast.Bool(true))),
		ast.Expr(ast.Bin("*", ast.Num(6), ast.Num(7))),
	)
	snap, _ := run(t, prog, nil)
	if len(snap.Errors) != 2 {
		t.Fatalf("expected two errors, got %d", len(snap.Errors))
	}
	if asNumber(t, snap.Value) != 42 {
		t.Fatalf("expected 42")
	}
}

func TestShortCircuitSkipsRightOperand(t *testing.T) {
	for _, tc := range []struct {
		op   string
		left bool
	}{{"&&", false}, {"||", true}} {
		right := ast.Call(ast.ID("boom"))
		prog := ast.Prog(ast.Expr(ast.Logic(tc.op, ast.Bool(tc.left), right)))
		calls := 0
		snap, steps := run(t, prog, runtime.Bindings{"boom": func() bool { calls++; return true }})
		for _, step := range steps {
			if ast.NodesEqual(step.Node, right) || ast.NodesEqual(step.Node, right.Callee) {
				t.Fatalf("%s: right operand was visited", tc.op)
			}
		}
		if calls != 0 {
			t.Fatalf("%s: host function called", tc.op)
		}
		if !runtime.Equal(snap.Value, runtime.BoolValue{Val: tc.left}) {
			t.Fatalf("%s: unexpected result %s", tc.op, runtime.Inspect(snap.Value))
		}
		if len(steps) != 5 {
			t.Fatalf("%s: expected 5 suspensions, got %d", tc.op, len(steps))
		}
	}
}

func TestLogicalReturnsRightOperand(t *testing.T) {
	snap, _ := run(t, ast.Prog(ast.Expr(ast.Logic("&&", ast.Bool(true), ast.Num(7)))), nil)
	if asNumber(t, snap.Value) != 7 {
		t.Fatalf("expected right operand value")
	}
}

func TestFunctionsAndClosures(t *testing.T) {
	t.Run("call", func(t *testing.T) {
		prog := ast.Prog(
			ast.Fn("add", []string{"a", "b"}, ast.Ret(ast.Bin("+", ast.ID("a"), ast.ID("b")))),
			ast.Expr(ast.Call(ast.ID("add"), ast.Num(2), ast.Num(3))),
		)
		snap, steps := run(t, prog, nil)
		if asNumber(t, snap.Value) != 5 {
			t.Fatalf("expected 5")
		}
		if len(snap.CallStack) != 0 {
			t.Fatalf("call stack not unwound")
		}
		sawCallSite := false
		for _, step := range steps {
			if call, ok := step.Node.(*ast.CallExpression); ok && step.Phase == PhaseValue && call.CallSite != "" {
				sawCallSite = true
			}
		}
		if !sawCallSite {
			t.Fatalf("expected the call value to carry a call-site tag")
		}
	})
	t.Run("recursion", func(t *testing.T) {
		prog := ast.Prog(
			ast.Fn("fact", []string{"n"},
				ast.If(ast.Bin("<=", ast.ID("n"), ast.Num(1)), ast.Block(ast.Ret(ast.Num(1))), nil),
				ast.Ret(ast.Bin("*", ast.ID("n"), ast.Call(ast.ID("fact"), ast.Bin("-", ast.ID("n"), ast.Num(1))))),
			),
			ast.Expr(ast.Call(ast.ID("fact"), ast.Num(5))),
		)
		snap, _ := run(t, prog, nil)
		if asNumber(t, snap.Value) != 120 {
			t.Fatalf("expected 120, got %s", runtime.Inspect(snap.Value))
		}
	})
	t.Run("closure captures definition environment", func(t *testing.T) {
		prog := ast.Prog(
			ast.Fn("make", []string{"x"},
				ast.Ret(ast.Lambda([]string{"y"}, ast.Ret(ast.Bin("+", ast.ID("x"), ast.ID("y")))))),
			ast.Const("add2", ast.Call(ast.ID("make"), ast.Num(2))),
			ast.Const("x", ast.Num(100)),
			ast.Expr(ast.Call(ast.ID("add2"), ast.Num(3))),
		)
		snap, _ := run(t, prog, nil)
		if asNumber(t, snap.Value) != 5 {
			t.Fatalf("expected 5, got %s", runtime.Inspect(snap.Value))
		}
	})
	t.Run("falling off the end yields undefined", func(t *testing.T) {
		prog := ast.Prog(
			ast.Fn("noop", nil, ast.Expr(ast.Num(1))),
			ast.Expr(ast.Call(ast.ID("noop"))),
		)
		snap, _ := run(t, prog, nil)
		if snap.Value != runtime.Undefined {
			t.Fatalf("expected undefined, got %s", runtime.Inspect(snap.Value))
		}
	})
	t.Run("missing arguments are undefined", func(t *testing.T) {
		prog := ast.Prog(
			ast.Fn("id", []string{"a"}, ast.Ret(ast.ID("a"))),
			ast.Expr(ast.Call(ast.ID("id"))),
		)
		snap, _ := run(t, prog, nil)
		if snap.Value != runtime.Undefined {
			t.Fatalf("expected undefined, got %s", runtime.Inspect(snap.Value))
		}
	})
}

func TestConditionalAndIf(t *testing.T) {
	prog := ast.Prog(
		ast.Const("n", ast.Num(4)),
		ast.If(ast.Bin("===", ast.Bin("%", ast.ID("n"), ast.Num(2)), ast.Num(0)),
			ast.Block(ast.Expr(ast.Str("even"))),
			ast.Block(ast.Expr(ast.Str("odd")))),
	)
	snap, _ := run(t, prog, nil)
	if !runtime.Equal(snap.Value, runtime.StringValue{Val: "even"}) {
		t.Fatalf("expected even, got %s", runtime.Inspect(snap.Value))
	}

	snap, _ = run(t, ast.Prog(ast.Expr(ast.Cond(ast.Bool(false), ast.Num(1), ast.Num(2)))), nil)
	if asNumber(t, snap.Value) != 2 {
		t.Fatalf("expected alternate")
	}
}

func TestOperatorSemantics(t *testing.T) {
	cases := []struct {
		expr ast.Expression
		want runtime.Value
	}{
		{ast.Bin("+", ast.Str("a"), ast.Num(1)), runtime.StringValue{Val: "a1"}},
		{ast.Bin("/", ast.Num(1), ast.Num(0)), runtime.NumberValue{Val: math.Inf(1)}},
		{ast.Bin("<", ast.Str("a"), ast.Str("b")), runtime.BoolValue{Val: true}},
		{ast.Bin("==", ast.Str("1"), ast.Num(1)), runtime.BoolValue{Val: true}},
		{ast.Bin("===", ast.Str("1"), ast.Num(1)), runtime.BoolValue{Val: false}},
		{ast.Unary("!", ast.Num(0)), runtime.BoolValue{Val: true}},
		{ast.Unary("-", ast.Num(3)), runtime.NumberValue{Val: -3}},
		{ast.Unary("typeof", ast.Str("s")), runtime.StringValue{Val: "string"}},
	}
	for _, tc := range cases {
		snap, _ := run(t, ast.Prog(ast.Expr(tc.expr)), nil)
		if !runtime.Equal(snap.Value, tc.want) {
			t.Fatalf("got %s, want %s", runtime.Inspect(snap.Value), runtime.Inspect(tc.want))
		}
	}
}

func TestForeignCalls(t *testing.T) {
	bindings := runtime.Bindings{
		"double": func(x float64) float64 { return x * 2 },
		"fail":   func() (float64, error) { return 0, errors.New("nope") },
		"panics": func() int { panic("boom") },
		"count":  func(n int) int { return n + 1 },
	}
	snap, _ := run(t, ast.Prog(ast.Expr(ast.Call(ast.ID("double"), ast.Num(21)))), bindings)
	if asNumber(t, snap.Value) != 42 {
		t.Fatalf("expected 42")
	}
	snap, _ = run(t, ast.Prog(ast.Expr(ast.Call(ast.ID("count"), ast.Num(1)))), bindings)
	if asNumber(t, snap.Value) != 2 {
		t.Fatalf("expected numeric conversion to int")
	}
	for _, name := range []string{"fail", "panics"} {
		snap, _ = run(t, ast.Prog(ast.Expr(ast.Call(ast.ID(name)))), bindings)
		if len(snap.Errors) != 1 || snap.Value != runtime.Never {
			t.Fatalf("%s: expected call error and never, got %v / %s", name, snap.Errors, runtime.Inspect(snap.Value))
		}
	}
}

func TestBindingsResolveLate(t *testing.T) {
	bindings := runtime.Bindings{"x": 3.0}
	snap := NewSnapshot("", nil)
	snap.Init(bindings)
	if got := EvalStatement(ast.Expr(ast.Bin("+", ast.ID("x"), ast.Num(0))), snap); asNumber(t, got) != 3 {
		t.Fatalf("expected 3")
	}
	bindings["x"] = 10.0
	if got := EvalStatement(ast.Expr(ast.Bin("+", ast.ID("x"), ast.Num(0))), snap); asNumber(t, got) != 10 {
		t.Fatalf("expected late-bound 10")
	}
}

func TestEvalStatementThreadsEnvironment(t *testing.T) {
	snap := NewSnapshot("", nil)
	EvalStatement(ast.Const("x", ast.Num(3)), snap)
	EvalStatement(ast.Fn("twice", []string{"v"}, ast.Ret(ast.Bin("*", ast.ID("v"), ast.Num(2)))), snap)
	got := EvalStatement(ast.Expr(ast.Call(ast.ID("twice"), ast.ID("x"))), snap)
	if asNumber(t, got) != 6 {
		t.Fatalf("expected 6, got %s", runtime.Inspect(got))
	}
	if snap.Running {
		t.Fatalf("expected finished snapshot")
	}
}

func TestMaxStepsStopsRunawayPrograms(t *testing.T) {
	prog := ast.Prog(
		ast.Fn("loop", nil, ast.Ret(ast.Call(ast.ID("loop")))),
		ast.Expr(ast.Call(ast.ID("loop"))),
	)
	snap, steps := run(t, prog, nil, WithMaxSteps(50))
	if len(steps) != 50 {
		t.Fatalf("expected 50 suspensions, got %d", len(steps))
	}
	if len(snap.Errors) != 1 || snap.Errors[0].Type != ErrStepLimit {
		t.Fatalf("expected step limit error, got %v", snap.Errors)
	}
	if snap.Value != runtime.Never {
		t.Fatalf("expected never")
	}
}

func TestUnknownIdentifierIsNever(t *testing.T) {
	snap, _ := run(t, ast.Prog(ast.Expr(ast.ID("nothing"))), nil)
	if snap.Value != runtime.Never {
		t.Fatalf("expected never, got %s", runtime.Inspect(snap.Value))
	}
	snap, _ = run(t, ast.Prog(ast.Expr(ast.ID("undefined"))), nil)
	if snap.Value != runtime.Undefined {
		t.Fatalf("expected undefined, got %s", runtime.Inspect(snap.Value))
	}
}

func TestBlocksShareTheirFrame(t *testing.T) {
	prog := ast.Prog(
		ast.If(ast.Bool(true), ast.Block(ast.Const("x", ast.Num(1))), nil),
		ast.Expr(ast.ID("x")),
	)
	snap := NewSnapshot("", prog)
	depth := snap.Env.Depth()
	ev := New(snap)
	for ev.Running() {
		ev.Resume()
		if snap.Env.Depth() != depth {
			t.Fatalf("block pushed a frame: depth %d, want %d", snap.Env.Depth(), depth)
		}
	}
	if asNumber(t, snap.Value) != 1 {
		t.Fatalf("expected x to stay bound after the block")
	}
}

func TestFunctionsInBlocksAreHoisted(t *testing.T) {
	prog := ast.Prog(
		ast.Const("r", ast.Call(ast.ID("g"))),
		ast.If(ast.Bool(true), ast.Block(ast.Fn("g", nil, ast.Ret(ast.Num(7)))), nil),
		ast.Expr(ast.ID("r")),
	)
	snap, _ := run(t, prog, nil)
	if len(snap.Errors) != 0 {
		t.Fatalf("unexpected errors %v", snap.Errors)
	}
	if asNumber(t, snap.Value) != 7 {
		t.Fatalf("expected 7, got %s", runtime.Inspect(snap.Value))
	}
}

func TestCallErrorRecordedBeforeArguments(t *testing.T) {
	snap := NewSnapshot("2(3);", ast.Prog(ast.Expr(ast.Call(ast.Num(2), ast.Num(3)))))
	ev := New(snap)
	for i := 1; i <= 4; i++ {
		ev.Resume()
	}
	if len(snap.Errors) != 0 {
		t.Fatalf("error recorded before the callee value was known")
	}
	step, _ := ev.Resume()
	if step.Phase != PhaseEnter || step.Node.NodeType() != ast.NodeLiteral {
		t.Fatalf("fifth suspension: got %s/%s", step.Node.NodeType(), step.Phase)
	}
	if len(snap.Errors) != 1 {
		t.Fatalf("expected the call error by the fifth suspension, got %d", len(snap.Errors))
	}
	for ev.Running() {
		ev.Resume()
	}
	if len(snap.Errors) != 1 || snap.Value != runtime.Never {
		t.Fatalf("expected one error and never, got %d and %s", len(snap.Errors), runtime.Inspect(snap.Value))
	}
}

func TestCallingHostNonFunctionIsReportedOnce(t *testing.T) {
	prog := ast.Prog(ast.Expr(ast.Call(ast.ID("n"), ast.Num(1))))
	snap, _ := run(t, prog, runtime.Bindings{"n": 3.0})
	if len(snap.Errors) != 1 || snap.Errors[0].Type != ErrCall {
		t.Fatalf("expected one call error, got %+v", snap.Errors)
	}
}

func TestUnsupportedOperatorHasOwnErrorType(t *testing.T) {
	prog := ast.Prog(
		ast.Expr(ast.Bin("**", ast.Num(2), ast.Num(3))),
		ast.Expr(ast.Unary("~", ast.Num(1))),
	)
	snap, _ := run(t, prog, nil)
	if len(snap.Errors) != 2 {
		t.Fatalf("expected two errors, got %d", len(snap.Errors))
	}
	for _, e := range snap.Errors {
		if e.Type != ErrOperator {
			t.Fatalf("expected %s, got %s", ErrOperator, e.Type)
		}
	}
}

func TestStringToNumber(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"  42 ", 42},
		{"-1.5e2", -150},
		{".5", 0.5},
		{"Infinity", math.Inf(1)},
		{"-Infinity", math.Inf(-1)},
		{"0x10", 16},
		{"0b101", 5},
		{"0o17", 15},
		{"1e400", math.Inf(1)},
	} {
		if got := stringToNumber(tc.in); got != tc.want {
			t.Fatalf("stringToNumber(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	for _, in := range []string{"inf", "infinity", "+inf", "NaN", "0x1p-2", "1_000", "-0x10", "0x", "abc", "1e", "."} {
		if got := stringToNumber(in); !math.IsNaN(got) {
			t.Fatalf("stringToNumber(%q) = %v, want NaN", in, got)
		}
	}
}

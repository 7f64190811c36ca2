package interpreter_test

import (
	"testing"

	"sourcestep/interpreter-go/pkg/interpreter"
	"sourcestep/interpreter-go/pkg/parser"
	"sourcestep/interpreter-go/pkg/runtime"
	"sourcestep/interpreter-go/pkg/typechecker"
)

// Programs the analyzer accepts must evaluate without runtime errors and
// to the same value under both strategies.
func TestAcceptedProgramsEvaluate(t *testing.T) {
	cases := []struct {
		name string
		code string
		want runtime.Value
	}{
		{"block declaration outlives block", "if (true) { const x = 1; } x;", runtime.Box(1)},
		{"function in block", "if (true) { function g() { return 1; } g(); }", runtime.Box(1)},
		{"function in block called earlier", "const r = g();\nif (true) { function g() { return 2; } }\nr;", runtime.Box(2)},
		{"branches reuse a name", "const c = false;\nif (c) { const x = 1; } else { const x = 2; }\nx;", runtime.Box(2)},
		{"recursion with block locals", "function f(n) {\n  if (n > 0) { const m = n - 1; return f(m) + 1; }\n  return 0;\n}\nf(3);", runtime.Box(3)},
		{"closure over block local", "function mk() {\n  if (true) { const k = 5; return () => k; }\n  return () => 0;\n}\nmk()();", runtime.Box(5)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prog, diags, err := parser.Parse([]byte(tc.code))
			if err != nil || len(diags) != 0 {
				t.Fatalf("parse: %v %v", err, diags)
			}
			result, err := typechecker.Check(prog)
			if err != nil {
				t.Fatalf("check: %v", err)
			}
			if len(result.Diagnostics) != 0 {
				t.Fatalf("analyzer rejected program: %v", result.Err())
			}
			for _, strategy := range []interpreter.Strategy{interpreter.StateThreaded, interpreter.Substitution} {
				snap := interpreter.NewSnapshot(tc.code, prog)
				ev := interpreter.New(snap, interpreter.WithStrategy(strategy), interpreter.WithMaxSteps(10000))
				for ev.Running() {
					ev.Resume()
				}
				if len(snap.Errors) != 0 {
					t.Fatalf("%s: runtime errors %v", strategy, snap.Errors)
				}
				if !runtime.Equal(snap.Value, tc.want) {
					t.Fatalf("%s: got %s, want %s", strategy, runtime.Inspect(snap.Value), runtime.Inspect(tc.want))
				}
			}
		})
	}
}

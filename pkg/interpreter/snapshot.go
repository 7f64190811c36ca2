package interpreter

import (
	"fmt"
	"strings"

	"sourcestep/interpreter-go/pkg/ast"
	"sourcestep/interpreter-go/pkg/runtime"
)

// Phase identifies the kind of suspension a Snapshot is parked at.
type Phase int

const (
	PhaseEnter Phase = iota
	PhaseValue
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseEnter:
		return "enter"
	case PhaseValue:
		return "value"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase_%d", int(p))
	}
}

// RuntimeError is an accumulated runtime diagnostic. It never aborts
// evaluation.
type RuntimeError struct {
	Type        string
	Node        ast.Node
	Explanation string
}

const (
	ErrCall      = "CallError"
	ErrOperator  = "OperatorError"
	ErrStepLimit = "StepLimitExceeded"
)

func (e RuntimeError) Error() string {
	if e.Node == nil {
		return fmt.Sprintf("%s: %s", e.Type, e.Explanation)
	}
	start := e.Node.Span().Start
	return fmt.Sprintf("%s: %s (line %d col %d)", e.Type, e.Explanation, start.Line, start.Column)
}

// Snapshot is the complete evaluation state at one suspension point. It is
// owned by a single evaluator and mutated in place on every resume.
type Snapshot struct {
	Program   *ast.Program
	Env       *runtime.Environment
	CallStack []*ast.CallExpression
	Node      ast.Node
	Phase     Phase
	Value     runtime.Value
	Running   bool
	Errors    []RuntimeError
	Bindings  runtime.Bindings
	// Reduced is the program with reduced sub-expressions substituted.
	// Only the substitution strategy maintains it.
	Reduced *ast.Program

	code  string
	lines []string
}

// NewSnapshot creates a running snapshot over program with the initial
// environment.
func NewSnapshot(code string, program *ast.Program) *Snapshot {
	s := &Snapshot{
		Program:  program,
		Env:      runtime.NewEnvironment(),
		Value:    runtime.Undefined,
		Running:  true,
		Bindings: runtime.Bindings{},
		Reduced:  program,
	}
	s.SetCode(code)
	return s
}

// SetCode stores source text with line endings normalised to "\n".
func (s *Snapshot) SetCode(code string) {
	code = strings.ReplaceAll(code, "\r\n", "\n")
	code = strings.ReplaceAll(code, "\r", "\n")
	s.code = code
	s.lines = strings.Split(code, "\n")
}

func (s *Snapshot) Code() string    { return s.code }
func (s *Snapshot) Lines() []string { return s.lines }

// Init binds every name of the external table as a named foreign reference
// in the outermost frame. References resolve when unboxed, so later changes
// to bindings stay visible.
func (s *Snapshot) Init(bindings runtime.Bindings) {
	if bindings == nil {
		bindings = runtime.Bindings{}
	}
	s.Bindings = bindings
	for name := range bindings {
		s.Env.DefineGlobal(name, runtime.ForeignValue{Name: name})
	}
}

func (s *Snapshot) GetVar(name string) runtime.Value {
	return s.Env.GetVar(name)
}

func (s *Snapshot) SetVar(name string, value runtime.Value) {
	s.Env.SetVar(name, value)
}

// Unbox resolves v against the snapshot's binding table.
func (s *Snapshot) Unbox(v runtime.Value) any {
	return runtime.Unbox(v, s.Bindings)
}

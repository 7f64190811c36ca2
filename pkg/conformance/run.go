package conformance

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/hashicorp/go-multierror"

	"sourcestep/interpreter-go/pkg/ast"
	"sourcestep/interpreter-go/pkg/interpreter"
	"sourcestep/interpreter-go/pkg/printer"
	"sourcestep/interpreter-go/pkg/runtime"
	"sourcestep/interpreter-go/pkg/scheduler"
)

// Options configure how a fixture's statements are evaluated.
type Options struct {
	Strategy interpreter.Strategy
	MaxSteps int
	Bindings runtime.Bindings
	Logger   *slog.Logger
}

// Failure is a statement whose final value differed from its expectation.
type Failure struct {
	Case Case
	Got  runtime.Value
}

// Message is the short form "L<line>: <statement>".
func (f Failure) Message() string {
	return fmt.Sprintf("L%d: %s", f.Case.Line, printer.Print(f.Case.Statement))
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s (got %s, want %s)", f.Case.Fixture, f.Message(), runtime.Inspect(f.Got), f.Case.Want)
}

// Report is the outcome of one fixture.
type Report struct {
	Suite    string
	Fixture  string
	Cases    int
	Steps    int
	Failures []Failure
	// Errors are runtime errors accumulated while running the fixture.
	Errors []interpreter.RuntimeError
}

func (r *Report) Passed() bool { return len(r.Failures) == 0 }

// Err folds every failure into one error, or nil when all cases passed.
func (r *Report) Err() error {
	var errs *multierror.Error
	for _, f := range r.Failures {
		errs = multierror.Append(errs, f)
	}
	return errs.ErrorOrNil()
}

// RunCases evaluates cases in order against one snapshot, each driven to
// completion by the blocking scheduler.
func RunCases(ctx context.Context, fixture string, code []byte, cases []Case, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	snap := interpreter.NewSnapshot(string(code), nil)
	snap.Init(opts.Bindings)
	ids := ast.NewIDGenerator("v")
	policy := scheduler.Blocking[interpreter.Step]{Logger: logger}

	report := &Report{Fixture: fixture, Cases: len(cases)}
	for _, c := range cases {
		ev := interpreter.ForStatement(c.Statement, snap,
			interpreter.WithStrategy(opts.Strategy),
			interpreter.WithMaxSteps(opts.MaxSteps),
			interpreter.WithIDGenerator(ids),
			interpreter.WithLogger(logger))
		resumes, status, err := policy.Drive(ctx, ev).Await()
		if status != scheduler.Finished {
			return report, fmt.Errorf("conformance: %s L%d: %s: %w", fixture, c.Line, status, err)
		}
		report.Steps += resumes
		if !sameValue(snap.Value, c.Expected) {
			f := Failure{Case: c, Got: snap.Value}
			logger.Debug("mismatch", "fixture", fixture, "case", f.Message(), "got", runtime.Inspect(snap.Value), "want", c.Want)
			report.Failures = append(report.Failures, f)
		}
	}
	report.Errors = append(report.Errors, snap.Errors...)
	return report, nil
}

// sameValue is strict equality except that NaN matches NaN.
func sameValue(got, want runtime.Value) bool {
	if g, ok := got.(runtime.NumberValue); ok {
		if w, ok := want.(runtime.NumberValue); ok && math.IsNaN(g.Val) && math.IsNaN(w.Val) {
			return true
		}
	}
	return runtime.Equal(got, want)
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"

	"sourcestep/interpreter-go/pkg/conformance"
	"sourcestep/interpreter-go/pkg/driver"
	"sourcestep/interpreter-go/pkg/interpreter"
	"sourcestep/interpreter-go/pkg/logging"
	"sourcestep/interpreter-go/pkg/printer"
	"sourcestep/interpreter-go/pkg/runtime"
	"sourcestep/interpreter-go/pkg/scheduler"
)

const manifestFileName = "conformance.yml"

var errManifestNotFound = errors.New(manifestFileName + " not found")

type execFlags struct {
	strategy string
	maxSteps int
	interval time.Duration
	bindings []string
	force    bool
}

func (f *execFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.strategy, "strategy", string(driver.StrategyStateThreaded), "evaluation strategy: state-threaded or substitution")
	cmd.Flags().IntVar(&f.maxSteps, "max-steps", 100000, "stop after this many steps (0 for no limit)")
	cmd.Flags().DurationVar(&f.interval, "interval", 0, "pace steps at this period instead of running flat out")
	cmd.Flags().StringArrayVar(&f.bindings, "bind", nil, "host binding name=value (repeatable)")
	cmd.Flags().BoolVar(&f.force, "force", false, "run even when the analyzer reports errors")
}

func (f *execFlags) strategyValue() (interpreter.Strategy, error) {
	switch driver.Strategy(f.strategy) {
	case driver.StrategyStateThreaded:
		return interpreter.StateThreaded, nil
	case driver.StrategySubstitution:
		return interpreter.Substitution, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q", f.strategy)
	}
}

// loadFile parses and analyses path, printing every diagnostic to w.
func loadFile(cmd *cobra.Command, path string, bindings runtime.Bindings, w io.Writer) (*driver.Program, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	loader, err := driver.NewLoader(
		driver.WithLogger(logging.FromContext(cmd.Context())),
		driver.WithBindings(bindingNames(bindings)...))
	if err != nil {
		return nil, err
	}
	defer loader.Close()
	prog, err := loader.Load(path, code)
	if err != nil {
		return nil, err
	}
	for _, d := range prog.Diagnostics() {
		fmt.Fprint(w, printer.FormatDiagnostic(prog.Code, d))
	}
	return prog, nil
}

// execute prepares bindings, loads path and drives an evaluator over it.
// observe sees every suspension.
func execute(cmd *cobra.Command, path string, flags *execFlags, observe func(interpreter.Step)) (*interpreter.Snapshot, error) {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	strategy, err := flags.strategyValue()
	if err != nil {
		return nil, err
	}
	bindings, err := parseBindings(flags.bindings)
	if err != nil {
		return nil, err
	}
	bindings = withBuiltins(bindings, stdout)

	prog, err := loadFile(cmd, path, bindings, stderr)
	if err != nil {
		return nil, err
	}
	if prog.AST == nil || prog.HasErrors() && !flags.force {
		return nil, exitError{code: 1}
	}

	logger := logging.FromContext(cmd.Context())
	snap := interpreter.NewSnapshot(prog.Code, prog.AST)
	snap.Init(bindings)
	ev := interpreter.New(snap,
		interpreter.WithStrategy(strategy),
		interpreter.WithMaxSteps(flags.maxSteps),
		interpreter.WithLogger(logger))

	var policy scheduler.Policy[interpreter.Step] = scheduler.Blocking[interpreter.Step]{Observe: observe, Logger: logger}
	if flags.interval > 0 {
		policy = scheduler.Interval[interpreter.Step]{Period: flags.interval, Observe: observe, Logger: logger}
	}
	if _, status, err := policy.Drive(cmd.Context(), ev).Await(); status != scheduler.Finished {
		if err == nil {
			err = errors.New("interrupted")
		}
		return snap, errors.Wrapf(err, "evaluation %s", status)
	}

	for _, rerr := range snap.Errors {
		fmt.Fprint(stderr, printer.FormatRuntimeError(prog.Code, rerr))
	}
	return snap, nil
}

func newRunCmd() *cobra.Command {
	var flags execFlags
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Evaluate a program and print its final value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := execute(cmd, args[0], &flags, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), runtime.Inspect(snap.Value))
			if len(snap.Errors) > 0 {
				return exitError{code: 2}
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newTraceCmd() *cobra.Command {
	var flags execFlags
	cmd := &cobra.Command{
		Use:   "trace <file>",
		Short: "Evaluate a program printing every suspension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			count := 0
			observe := func(step interpreter.Step) {
				count++
				fmt.Fprintln(out, formatStep(count, step))
				if step.Program != nil && step.Phase == interpreter.PhaseValue {
					fmt.Fprintln(out, indent(printer.Print(step.Program)))
				}
			}
			snap, err := execute(cmd, args[0], &flags, observe)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "done after %d steps: %s\n", count, runtime.Inspect(snap.Value))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func formatStep(n int, step interpreter.Step) string {
	start := step.Node.Span().Start
	line := fmt.Sprintf("%4d %-5s %s L%d:%d", n, step.Phase, step.Node.NodeType(), start.Line, start.Column)
	if step.Phase == interpreter.PhaseValue {
		line += " => " + runtime.Inspect(step.Value)
	}
	return line
}

func indent(text string) string {
	out := "     | "
	for _, r := range text {
		out += string(r)
		if r == '\n' {
			out += "     | "
		}
	}
	return out
}

func newCheckCmd() *cobra.Command {
	var (
		bindings []string
		dumpAST  bool
	)
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Report syntax and type diagnostics without running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseBindings(bindings)
			if err != nil {
				return err
			}
			prog, err := loadFile(cmd, args[0], withBuiltins(parsed, io.Discard), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if dumpAST && prog.AST != nil {
				fmt.Fprintln(out, litter.Sdump(prog.AST))
			}
			for _, d := range prog.Diagnostics() {
				fmt.Fprintln(out, printer.Summary(d))
			}
			if prog.HasErrors() {
				return exitError{code: 1}
			}
			fmt.Fprintf(out, "%s: ok\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&bindings, "bind", nil, "declare a host binding name=value (repeatable)")
	cmd.Flags().BoolVar(&dumpAST, "dump-ast", false, "print the parsed AST")
	return cmd
}

func newGraphCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "graph <file>",
		Short: "Write the control-flow graph in Graphviz DOT format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loadFile(cmd, args[0], withBuiltins(runtime.Bindings{}, io.Discard), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if prog.Analysis == nil {
				return exitError{code: 1}
			}
			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return errors.Wrapf(err, "create %s", output)
				}
				defer f.Close()
				w = f
			}
			return prog.Analysis.Graph.WriteDOT(w)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func newConformCmd() *cobra.Command {
	var (
		suites      []string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "conform [manifest]",
		Short: "Run conformance suites from a " + manifestFileName,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := "."
			if len(args) == 1 {
				start = args[0]
			}
			manifestPath, err := findManifest(start)
			if err != nil {
				return err
			}
			manifest, err := driver.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			runner := &conformance.Runner{
				Manifest:    manifest,
				Logger:      logging.FromContext(cmd.Context()),
				Concurrency: concurrency,
			}
			reports, err := runner.Run(cmd.Context(), suites...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := 0
			for _, report := range reports {
				status := "ok"
				if !report.Passed() {
					status = "FAIL"
					failed++
				}
				fmt.Fprintf(out, "%-4s %s/%s (%d cases)\n", status, report.Suite, report.Fixture, report.Cases)
				for _, f := range report.Failures {
					fmt.Fprintf(out, "     %s: got %s, want %s\n", f.Message(), runtime.Inspect(f.Got), f.Case.Want)
				}
			}
			if failed > 0 {
				return exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&suites, "suite", nil, "only run this suite (repeatable)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "suites to run at once (0 for GOMAXPROCS)")
	return cmd
}

// findManifest walks upwards from start to the nearest manifest. start may
// also name the manifest file itself.
func findManifest(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve start directory %q: %w", start, err)
	}
	if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
		return dir, nil
	}
	origin := dir
	for {
		candidate := filepath.Join(dir, manifestFileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found from %s upwards: %w", manifestFileName, origin, errManifestNotFound)
		}
		dir = parent
	}
}

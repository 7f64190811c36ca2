package conformance

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"sourcestep/interpreter-go/pkg/driver"
	"sourcestep/interpreter-go/pkg/interpreter"
	"sourcestep/interpreter-go/pkg/parser"
	rt "sourcestep/interpreter-go/pkg/runtime"
)

// Runner executes every suite of a manifest. Suites run concurrently, each
// with its own parser and snapshots; fixtures within a suite run in order.
type Runner struct {
	Manifest *driver.Manifest
	Logger   *slog.Logger
	// Concurrency bounds the number of suites in flight. Zero means
	// GOMAXPROCS.
	Concurrency int
}

// Run returns one report per fixture in manifest order. Mismatches are
// recorded in the reports; the error is for fixtures that could not be
// loaded or runs that were cancelled.
func (r *Runner) Run(ctx context.Context, only ...string) ([]*Report, error) {
	if r.Manifest == nil {
		return nil, errors.New("conformance: no manifest")
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	suites, err := r.selectSuites(only)
	if err != nil {
		return nil, err
	}

	limit := r.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	results := make([][]*Report, len(suites))
	for i, suite := range suites {
		g.Go(func() error {
			reports, err := r.runSuite(ctx, suite, logger.With("suite", suite.Name))
			results[i] = reports
			return err
		})
	}
	err = g.Wait()

	var out []*Report
	for _, reports := range results {
		out = append(out, reports...)
	}
	return out, err
}

func (r *Runner) selectSuites(only []string) ([]*driver.SuiteSpec, error) {
	if len(only) == 0 {
		return r.Manifest.OrderedSuites(), nil
	}
	suites := make([]*driver.SuiteSpec, 0, len(only))
	for _, name := range only {
		suite, ok := r.Manifest.FindSuite(name)
		if !ok {
			return nil, errors.Errorf("conformance: unknown suite %q", name)
		}
		suites = append(suites, suite)
	}
	return suites, nil
}

func (r *Runner) runSuite(ctx context.Context, suite *driver.SuiteSpec, logger *slog.Logger) ([]*Report, error) {
	src, err := r.Manifest.SourceFor(suite)
	if err != nil {
		return nil, errors.Wrapf(err, "suite %s", suite.Name)
	}
	p, err := parser.NewParser()
	if err != nil {
		return nil, err
	}
	defer p.Close()

	opts := Options{
		Strategy: strategyFor(suite.Strategy),
		MaxSteps: suite.MaxSteps,
		Bindings: rt.Bindings(suite.Bindings),
		Logger:   logger,
	}
	reports := make([]*Report, 0, len(suite.Fixtures))
	for _, fixture := range suite.Fixtures {
		code, err := src.ReadFixture(fixture)
		if err != nil {
			return reports, errors.Wrapf(err, "suite %s", suite.Name)
		}
		cases, err := LoadCases(p, fixture, code)
		if err != nil {
			return reports, errors.Wrapf(err, "suite %s", suite.Name)
		}
		report, err := RunCases(ctx, fixture, code, cases, opts)
		if err != nil {
			return reports, errors.Wrapf(err, "suite %s", suite.Name)
		}
		report.Suite = suite.Name
		reports = append(reports, report)
		logger.Info("fixture finished",
			"fixture", fixture,
			"source", src.String(),
			"cases", report.Cases,
			"failures", len(report.Failures))
	}
	return reports, nil
}

func strategyFor(s driver.Strategy) interpreter.Strategy {
	if s == driver.StrategySubstitution {
		return interpreter.Substitution
	}
	return interpreter.StateThreaded
}

// Failures folds the failures of every report into one error.
func Failures(reports []*Report) error {
	var errs *multierror.Error
	for _, report := range reports {
		if err := report.Err(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

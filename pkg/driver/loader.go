package driver

import (
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"sourcestep/interpreter-go/pkg/ast"
	"sourcestep/interpreter-go/pkg/parser"
	"sourcestep/interpreter-go/pkg/typechecker"
)

// Program is a parsed and analysed source file.
type Program struct {
	Name     string
	Code     string
	AST      *ast.Program
	Syntax   []typechecker.Diagnostic
	Analysis *typechecker.Result
}

// Diagnostics returns syntax diagnostics followed by analysis diagnostics.
func (p *Program) Diagnostics() []typechecker.Diagnostic {
	out := append([]typechecker.Diagnostic(nil), p.Syntax...)
	if p.Analysis != nil {
		out = append(out, p.Analysis.Diagnostics...)
	}
	return out
}

// HasErrors reports whether any diagnostic other than a lint warning was
// found, or the source could not be parsed at all.
func (p *Program) HasErrors() bool {
	if p.AST == nil {
		return true
	}
	for _, d := range p.Diagnostics() {
		if d.Type != typechecker.ErrMissingSemicolon {
			return true
		}
	}
	return false
}

// Err folds every diagnostic into one error.
func (p *Program) Err() error {
	var errs *multierror.Error
	for _, d := range p.Diagnostics() {
		errs = multierror.Append(errs, d)
	}
	return errs.ErrorOrNil()
}

type LoaderOption func(*Loader)

func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithBindings declares host names the analyzer should treat as defined.
func WithBindings(names ...string) LoaderOption {
	return func(l *Loader) { l.bindings = append(l.bindings, names...) }
}

// Loader runs source through the parser and the analyzer. It is not safe
// for concurrent use.
type Loader struct {
	parser   *parser.Parser
	logger   *slog.Logger
	bindings []string
}

func NewLoader(opts ...LoaderOption) (*Loader, error) {
	p, err := parser.NewParser()
	if err != nil {
		return nil, err
	}
	l := &Loader{parser: p, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Loader) Close() { l.parser.Close() }

// Parser exposes the loader's parser so callers that parse fragments share
// its node tags.
func (l *Loader) Parser() *parser.Parser { return l.parser }

// Load parses and analyses code. Diagnostics are returned on the Program;
// the error is reserved for failures of the pipeline itself.
func (l *Loader) Load(name string, code []byte) (*Program, error) {
	prog, syntax, err := l.parser.Parse(code)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", name)
	}
	out := &Program{Name: name, Code: string(code), AST: prog, Syntax: syntax}
	if prog == nil {
		l.logger.Debug("parse failed", "program", name, "diagnostics", len(syntax))
		return out, nil
	}
	result, err := typechecker.Check(prog,
		typechecker.WithLogger(l.logger),
		typechecker.WithBindings(l.bindings...))
	if err != nil {
		return nil, errors.Wrapf(err, "analyse %s", name)
	}
	out.Analysis = result
	l.logger.Debug("loaded", "program", name, "statements", len(prog.Body), "diagnostics", len(out.Diagnostics()))
	return out, nil
}

// LoadFixture reads name from src and loads it.
func (l *Loader) LoadFixture(src Source, name string) (*Program, error) {
	code, err := src.ReadFixture(name)
	if err != nil {
		return nil, err
	}
	return l.Load(name, code)
}

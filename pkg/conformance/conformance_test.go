package conformance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"sourcestep/interpreter-go/pkg/driver"
	"sourcestep/interpreter-go/pkg/interpreter"
	"sourcestep/interpreter-go/pkg/parser"
	"sourcestep/interpreter-go/pkg/runtime"
)

const basicFixture = `const x = 3; // 3
x + 1; // 4
function twice(n) { return n * 2; } // undefined
twice(x); // 6
"a" + x; // "a3"
0 / 0; // NaN
-1 / 0; // -Infinity
`

func newParser(t *testing.T) *parser.Parser {
	t.Helper()
	p, err := parser.NewParser()
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestLoadCasesPairsCommentsWithStatements(t *testing.T) {
	cases, err := LoadCases(newParser(t), "basic.js", []byte(basicFixture))
	require.NoError(t, err)
	require.Len(t, cases, 7)

	require.Equal(t, 2, cases[1].Line)
	require.True(t, runtime.Equal(cases[1].Expected, runtime.Box(4)), spew.Sdump(cases[1].Expected))
	require.Equal(t, `"a3"`, cases[4].Want)
	require.True(t, runtime.Equal(cases[4].Expected, runtime.Box("a3")))
	require.True(t, runtime.Equal(cases[0].Expected, runtime.Box(3)))
	require.Equal(t, runtime.Undefined, cases[2].Expected)
}

func TestLoadCasesDefaultsToUndefined(t *testing.T) {
	cases, err := LoadCases(newParser(t), "short.js", []byte("1; // 1\n2;\n"))
	require.NoError(t, err)
	require.Len(t, cases, 2)
	require.Equal(t, runtime.Undefined, cases[1].Expected)
}

func TestLoadCasesRejectsBadExpectations(t *testing.T) {
	for _, src := range []string{"1; // f()\n", "1; // 1 +\n", "while (x) {}\n"} {
		_, err := LoadCases(newParser(t), "bad.js", []byte(src))
		require.Error(t, err, src)
		require.True(t, errors.Is(err, ErrInvalidFixture), "%s: %v", src, err)
	}
}

func TestRunCases(t *testing.T) {
	for _, strategy := range []interpreter.Strategy{interpreter.StateThreaded, interpreter.Substitution} {
		t.Run(strategy.String(), func(t *testing.T) {
			p := newParser(t)
			cases, err := LoadCases(p, "basic.js", []byte(basicFixture))
			require.NoError(t, err)
			report, err := RunCases(context.Background(), "basic.js", []byte(basicFixture), cases, Options{Strategy: strategy})
			require.NoError(t, err)
			require.True(t, report.Passed(), spew.Sdump(report.Failures))
			require.NoError(t, report.Err())
			require.Greater(t, report.Steps, len(cases))
		})
	}
}

func TestRunCasesReportsMismatch(t *testing.T) {
	src := []byte("const y = 2; // 2\ny + 1; // 4\n")
	cases, err := LoadCases(newParser(t), "wrong.js", src)
	require.NoError(t, err)
	report, err := RunCases(context.Background(), "wrong.js", src, cases, Options{})
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)

	f := report.Failures[0]
	require.Equal(t, "L2: y + 1;", f.Message())
	require.True(t, runtime.Equal(f.Got, runtime.Box(3)))
	require.Contains(t, f.Error(), "got 3, want 4")
	require.Error(t, report.Err())
}

func TestRunCasesUsesBindings(t *testing.T) {
	src := []byte("double(answer); // 84\n")
	cases, err := LoadCases(newParser(t), "host.js", src)
	require.NoError(t, err)
	report, err := RunCases(context.Background(), "host.js", src, cases, Options{
		Bindings: runtime.Bindings{
			"answer": 42,
			"double": func(n float64) float64 { return n * 2 },
		},
	})
	require.NoError(t, err)
	require.True(t, report.Passed(), spew.Sdump(report))
}

func TestRunCasesStopsOnCancel(t *testing.T) {
	src := []byte("1; // 1\n")
	cases, err := LoadCases(newParser(t), "c.js", src)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = RunCases(ctx, "c.js", src, cases, Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func commitDir(t *testing.T, dir string) string {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddGlob("*.js"))
	hash, err := wt.Commit("fixtures", &git.CommitOptions{
		Author: &object.Signature{Name: "Fixture Bot", Email: "fixtures@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash.String()
}

func TestRunnerRunsManifestSuites(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "basic.js"), []byte(basicFixture), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.js"), []byte("1 + 1; // 3\n"), 0o644))

	repo := filepath.Join(root, "repo")
	require.NoError(t, os.MkdirAll(repo, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "pinned.js"), []byte("2 * 21; // 42\n"), 0o644))
	hash := commitDir(t, repo)
	// The working tree diverges from the pinned commit.
	require.NoError(t, os.WriteFile(filepath.Join(repo, "pinned.js"), []byte("0; // 1\n"), 0o644))

	manifestPath := filepath.Join(root, "conformance.yml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(`
name: sample
suites:
  basic:
    fixtures: [basic.js, broken.js]
    strategy: substitution
  pinned:
    git: repo
    rev: `+hash+`
    fixtures: [pinned.js]
`), 0o644))

	m, err := driver.LoadManifest(manifestPath)
	require.NoError(t, err)
	reports, err := (&Runner{Manifest: m, Concurrency: 2}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 3)

	require.Equal(t, "basic", reports[0].Suite)
	require.True(t, reports[0].Passed(), spew.Sdump(reports[0].Failures))
	require.False(t, reports[1].Passed())
	require.Equal(t, "pinned", reports[2].Suite)
	require.True(t, reports[2].Passed(), spew.Sdump(reports[2].Failures))

	err = Failures(reports)
	require.Error(t, err)
	require.Contains(t, err.Error(), "L1: 1 + 1;")

	only, err := (&Runner{Manifest: m}).Run(context.Background(), "pinned")
	require.NoError(t, err)
	require.Len(t, only, 1)

	_, err = (&Runner{Manifest: m}).Run(context.Background(), "nope")
	require.Error(t, err)
}

func TestRunnerReportsMissingFixture(t *testing.T) {
	root := t.TempDir()
	manifestPath := filepath.Join(root, "conformance.yml")
	require.NoError(t, os.WriteFile(manifestPath, []byte("name: m\nsuites:\n  a:\n    fixtures: [missing.js]\n"), 0o644))
	m, err := driver.LoadManifest(manifestPath)
	require.NoError(t, err)
	_, err = (&Runner{Manifest: m}).Run(context.Background())
	require.ErrorIs(t, err, driver.ErrFixtureNotFound)
}

func TestRepositoryFixtures(t *testing.T) {
	manifest, err := driver.LoadManifest(filepath.Join("..", "..", "conformance.yml"))
	require.NoError(t, err)

	reports, err := (&Runner{Manifest: manifest}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 3)
	for _, report := range reports {
		require.True(t, report.Passed(), "%s/%s: %v", report.Suite, report.Fixture, report.Err())
	}
}

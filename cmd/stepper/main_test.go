package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestFindManifest(t *testing.T) {
	root := t.TempDir()
	want := writeSource(t, root, manifestFileName, "name: test\nsuites: {}\n")
	child := filepath.Join(root, "fixtures", "nested")
	if err := os.MkdirAll(child, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	found, err := findManifest(child)
	if err != nil {
		t.Fatalf("findManifest returned error: %v", err)
	}
	if found != want {
		t.Fatalf("findManifest = %q, want %q", found, want)
	}

	direct, err := findManifest(want)
	if err != nil || direct != want {
		t.Fatalf("findManifest(file) = %q, %v", direct, err)
	}
}

func TestFindManifestMissing(t *testing.T) {
	found, err := findManifest(t.TempDir())
	if err == nil {
		t.Skipf("a manifest exists above the temp dir: %s", found)
	}
	if !errors.Is(err, errManifestNotFound) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestParseBindings(t *testing.T) {
	got, err := parseBindings([]string{"n=42", "flag=true", "name=ada", "gone=undefined", "empty="})
	if err != nil {
		t.Fatalf("parseBindings: %v", err)
	}
	if got["n"] != 42.0 || got["flag"] != true || got["name"] != "ada" || got["gone"] != nil || got["empty"] != "" {
		t.Fatalf("unexpected bindings %#v", got)
	}
	if _, ok := got["gone"]; !ok {
		t.Fatalf("undefined binding should still be declared")
	}
	if _, err := parseBindings([]string{"novalue"}); err == nil {
		t.Fatalf("expected error for binding without '='")
	}
	if _, err := parseBindings([]string{"=3"}); err == nil {
		t.Fatalf("expected error for binding without a name")
	}
}

func TestRunPrintsFinalValue(t *testing.T) {
	path := writeSource(t, t.TempDir(), "main.js", "const x = 2;\nx * 21;\n")
	code, stdout, stderr := runCLI(t, "run", path)
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr)
	}
	if stdout != "42\n" {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestRunSubstitutionStrategy(t *testing.T) {
	path := writeSource(t, t.TempDir(), "main.js", "(1 + 2) * 3;\n")
	code, stdout, stderr := runCLI(t, "run", "--strategy", "substitution", path)
	if code != 0 || stdout != "9\n" {
		t.Fatalf("exit %d stdout %q stderr %s", code, stdout, stderr)
	}
}

func TestRunUsesBindingsAndPrint(t *testing.T) {
	path := writeSource(t, t.TempDir(), "main.js", "print(\"answer\", answer + 2);\nanswer;\n")
	code, stdout, stderr := runCLI(t, "run", "--bind", "answer=40", path)
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr)
	}
	if stdout != "answer 42\n40\n" {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestRunRejectsUnknownStrategy(t *testing.T) {
	path := writeSource(t, t.TempDir(), "main.js", "1;\n")
	code, _, stderr := runCLI(t, "run", "--strategy", "eager", path)
	if code != 1 || !strings.Contains(stderr, `unknown strategy "eager"`) {
		t.Fatalf("exit %d, stderr: %s", code, stderr)
	}
}

func TestRunStopsOnAnalysisErrors(t *testing.T) {
	path := writeSource(t, t.TempDir(), "main.js", "2(3);\n")
	code, stdout, stderr := runCLI(t, "run", path)
	if code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if stdout != "" {
		t.Fatalf("unexpected stdout %q", stdout)
	}
	if !strings.Contains(stderr, "2(3);\n^") {
		t.Fatalf("expected caret report, got %q", stderr)
	}
}

func TestRunForceReportsRuntimeErrors(t *testing.T) {
	path := writeSource(t, t.TempDir(), "main.js", "2(3);\n")
	code, _, stderr := runCLI(t, "run", "--force", path)
	if code != 2 {
		t.Fatalf("exit %d, want 2; stderr: %s", code, stderr)
	}
	if !strings.Contains(stderr, "2(3);\n^----\n") {
		t.Fatalf("expected runtime error report, got %q", stderr)
	}
}

func TestRunStepLimit(t *testing.T) {
	path := writeSource(t, t.TempDir(), "main.js", "1 + 2 + 3 + 4;\n")
	code, _, stderr := runCLI(t, "run", "--max-steps", "2", path)
	if code != 2 {
		t.Fatalf("exit %d, want 2; stderr: %s", code, stderr)
	}
}

func TestTracePrintsSteps(t *testing.T) {
	path := writeSource(t, t.TempDir(), "main.js", "1 + 2;\n")
	code, stdout, stderr := runCLI(t, "trace", "--strategy", "substitution", path)
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "BinaryExpression L1:1 => 3") {
		t.Fatalf("missing binary step in %s", stdout)
	}
	if !strings.Contains(stdout, "     | 3;") {
		t.Fatalf("missing reduced program in %s", stdout)
	}
	if !strings.HasSuffix(stdout, ": 3\n") {
		t.Fatalf("missing summary in %s", stdout)
	}
}

func TestCheckReportsDiagnostics(t *testing.T) {
	dir := t.TempDir()
	bad := writeSource(t, dir, "bad.js", "missing + 1;\n")
	code, stdout, _ := runCLI(t, "check", bad)
	if code != 1 || !strings.Contains(stdout, "syntax/undeclared-name") {
		t.Fatalf("exit %d stdout %q", code, stdout)
	}

	code, stdout, _ = runCLI(t, "check", "--bind", "missing=1", bad)
	if code != 0 || !strings.HasSuffix(stdout, "bad.js: ok\n") {
		t.Fatalf("exit %d stdout %q", code, stdout)
	}

	lint := writeSource(t, dir, "lint.js", "1 + 1\n")
	code, stdout, _ = runCLI(t, "check", lint)
	if code != 0 || !strings.Contains(stdout, "syntax/missing-semicolon") {
		t.Fatalf("lint: exit %d stdout %q", code, stdout)
	}
}

func TestCheckDumpAST(t *testing.T) {
	path := writeSource(t, t.TempDir(), "main.js", "1 + 2;\n")
	code, stdout, _ := runCLI(t, "check", "--dump-ast", path)
	if code != 0 || !strings.Contains(stdout, "BinaryExpression") {
		t.Fatalf("exit %d stdout %q", code, stdout)
	}
}

func TestGraphWritesDOT(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "main.js", "function f(a) { return a; }\nf(1);\n")
	code, stdout, stderr := runCLI(t, "graph", path)
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr)
	}
	if !strings.HasPrefix(stdout, "digraph") {
		t.Fatalf("expected DOT output, got %q", stdout)
	}

	out := filepath.Join(dir, "cfg.dot")
	if code, _, stderr := runCLI(t, "graph", "-o", out, path); code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr)
	}
	data, err := os.ReadFile(out)
	if err != nil || !strings.HasPrefix(string(data), "digraph") {
		t.Fatalf("read %s: %v %q", out, err, data)
	}
}

func TestConformRunsManifest(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "fixtures/ok.js", "const a = 1; // 1\na + 1; // 2\n")
	writeSource(t, root, "fixtures/bad.js", "1 + 1; // 3\n")
	writeSource(t, root, manifestFileName, `name: cli
suites:
  good:
    fixtures: [fixtures/ok.js]
  bad:
    fixtures: [fixtures/bad.js]
`)

	code, stdout, stderr := runCLI(t, "conform", "--suite", "good", root)
	if code != 0 {
		t.Fatalf("exit %d stdout %s stderr %s", code, stdout, stderr)
	}
	if !strings.Contains(stdout, "ok   good/fixtures/ok.js (2 cases)") {
		t.Fatalf("unexpected output %q", stdout)
	}

	code, stdout, _ = runCLI(t, "conform", root)
	if code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if !strings.Contains(stdout, "FAIL bad/fixtures/bad.js") || !strings.Contains(stdout, "got 2, want 3") {
		t.Fatalf("unexpected output %q", stdout)
	}
}

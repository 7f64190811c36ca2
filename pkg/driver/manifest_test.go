package driver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conformance.yml")
	writeFile(t, path, `
name: basics
suites:
  Arithmetic Basics:
    fixtures: [arith.js, strings.js]
    strategy: substitution
    max_steps: 500
    bindings:
      answer: 42
  pinned:
    fixtures: conformation/basic.js
    git: ./repo
    tag: v1
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Name != "basics" || m.Dir() != dir {
		t.Fatalf("unexpected manifest %+v", m)
	}
	if got := strings.Join(m.SuiteOrder, ","); got != "arithmetic_basics,pinned" {
		t.Fatalf("unexpected suite order %s", got)
	}
	arith, ok := m.FindSuite("Arithmetic Basics")
	if !ok {
		t.Fatalf("suite lookup by original name failed")
	}
	if arith.Strategy != StrategySubstitution || arith.MaxSteps != 500 || len(arith.Fixtures) != 2 {
		t.Fatalf("unexpected suite %+v", arith)
	}
	if arith.Bindings["answer"] != 42 {
		t.Fatalf("unexpected bindings %v", arith.Bindings)
	}
	pinned, _ := m.FindSuite("pinned")
	if pinned.Git != "./repo" || pinned.Tag != "v1" || pinned.Fixtures[0] != "conformation/basic.js" {
		t.Fatalf("unexpected git suite %+v", pinned)
	}
}

func TestLoadManifestRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conformance.yml")
	writeFile(t, path, "name: x\nsuites:\n  a:\n    fixtures: [a.js]\n    timeout: 3\n")
	if _, err := LoadManifest(path); err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestLoadManifestValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conformance.yml")
	writeFile(t, path, `
suites:
  a:
    strategy: eager
    max_steps: -1
  b-c:
    fixtures: [b.js]
    rev: abc
  b_c:
    fixtures: [c.js]
    git: repo
`)
	_, err := LoadManifest(path)
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := []string{
		"name must be provided",
		"suites.a: fixtures must list at least one file",
		`suites.a: unsupported strategy "eager"`,
		"suites.a: max_steps must not be negative",
		"suites.b-c: rev, tag and branch require git",
		`suites "b-c" and "b_c" collide after sanitization`,
		"suites.b_c: git suites require rev, tag, or branch",
	}
	if len(verr.Issues) != len(want) {
		t.Fatalf("expected %d issues, got %v", len(want), verr.Issues)
	}
	for i := range want {
		if verr.Issues[i] != want[i] {
			t.Fatalf("issue %d: got %q, want %q", i, verr.Issues[i], want[i])
		}
	}
}

func TestLoadManifestEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conformance.yml")
	writeFile(t, path, "")
	if _, err := LoadManifest(path); err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty manifest error, got %v", err)
	}
}

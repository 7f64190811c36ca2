package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
	"gopkg.in/yaml.v3"
)

// Manifest represents the parsed contents of a suite manifest
// (conformance.yml).
type Manifest struct {
	Path       string
	Name       string
	Suites     map[string]*SuiteSpec
	SuiteOrder []string

	suiteEntries []manifestSuiteEntry
}

// SuiteSpec describes one group of fixture files and how to run them.
type SuiteSpec struct {
	Name         string
	OriginalName string
	Fixtures     []string
	// Git, when set, reads fixtures from a repository at Rev, Tag or
	// Branch instead of the working tree.
	Git      string
	Rev      string
	Tag      string
	Branch   string
	Strategy Strategy
	MaxSteps int
	Bindings map[string]any
}

type manifestSuiteEntry struct {
	sanitized string
	spec      *SuiteSpec
}

// Strategy names an evaluation strategy in the manifest.
type Strategy string

const (
	StrategyStateThreaded Strategy = "state-threaded"
	StrategySubstitution  Strategy = "substitution"
)

// IsValid reports whether the strategy is recognised. Empty means the
// default.
func (s Strategy) IsValid() bool {
	switch s {
	case "", StrategyStateThreaded, StrategySubstitution:
		return true
	default:
		return false
	}
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// LoadManifest parses a suite manifest from disk, returning a validated
// manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()
	return DecodeManifest(file, absPath)
}

// DecodeManifest parses a manifest from r. path is recorded as the
// manifest location; relative fixture paths resolve against its directory.
func DecodeManifest(r io.Reader, path string) (*Manifest, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", path)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}

	manifest := raw.toManifest(path)
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

// Dir is the directory relative paths resolve against.
func (m *Manifest) Dir() string {
	if m == nil || m.Path == "" {
		return "."
	}
	return filepath.Dir(m.Path)
}

func (m *Manifest) validate() error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	if len(m.suiteEntries) == 0 {
		errs.Issues = append(errs.Issues, "at least one suite must be defined")
	}

	suiteNames := make(map[string]string, len(m.suiteEntries))
	for _, entry := range m.suiteEntries {
		suite := entry.spec
		if suite == nil {
			continue
		}
		if other, exists := suiteNames[entry.sanitized]; exists {
			errs.Issues = append(errs.Issues, fmt.Sprintf("suites %q and %q collide after sanitization", other, suite.OriginalName))
		} else {
			suiteNames[entry.sanitized] = suite.OriginalName
		}
		for _, issue := range suite.validate() {
			errs.Issues = append(errs.Issues, fmt.Sprintf("suites.%s: %s", suite.OriginalName, issue))
		}
	}

	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func (s *SuiteSpec) validate() []string {
	var errs []string
	if len(s.Fixtures) == 0 {
		errs = append(errs, "fixtures must list at least one file")
	}
	for i, fixture := range s.Fixtures {
		if filepath.IsAbs(fixture) && s.Git != "" {
			errs = append(errs, fmt.Sprintf("fixtures[%d] must be relative to the repository", i))
		}
	}
	if !s.Strategy.IsValid() {
		errs = append(errs, fmt.Sprintf("unsupported strategy %q", s.Strategy))
	}
	if s.MaxSteps < 0 {
		errs = append(errs, "max_steps must not be negative")
	}

	refs := 0
	for _, ref := range []string{s.Rev, s.Tag, s.Branch} {
		if ref != "" {
			refs++
		}
	}
	switch {
	case s.Git == "" && refs > 0:
		errs = append(errs, "rev, tag and branch require git")
	case s.Git != "" && refs == 0:
		errs = append(errs, "git suites require rev, tag, or branch")
	case refs > 1:
		errs = append(errs, "only one of rev, tag, or branch may be set")
	}
	return errs
}

// FindSuite looks up a suite by sanitized or original name.
func (m *Manifest) FindSuite(name string) (*SuiteSpec, bool) {
	if m == nil {
		return nil, false
	}
	name = strings.TrimSpace(name)
	if suite, ok := m.Suites[sanitizeSegment(name)]; ok && suite != nil {
		return suite, true
	}
	for _, entry := range m.suiteEntries {
		if entry.spec != nil && strings.EqualFold(entry.spec.OriginalName, name) {
			return entry.spec, true
		}
	}
	return nil, false
}

// OrderedSuites returns suites in manifest order.
func (m *Manifest) OrderedSuites() []*SuiteSpec {
	out := make([]*SuiteSpec, 0, len(m.SuiteOrder))
	for _, name := range m.SuiteOrder {
		out = append(out, m.Suites[name])
	}
	return out
}

// BindingNames returns the suite's binding names in sorted order.
func (s *SuiteSpec) BindingNames() []string {
	names := make([]string, 0, len(s.Bindings))
	for name := range s.Bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sanitizeSegment(seg string) string {
	return strcase.ToSnake(strings.TrimSpace(seg))
}

type manifestFile struct {
	Name   string   `yaml:"name"`
	Suites suiteMap `yaml:"suites"`
}

type suiteYAML struct {
	Fixtures stringList     `yaml:"fixtures"`
	Git      string         `yaml:"git"`
	Rev      string         `yaml:"rev"`
	Tag      string         `yaml:"tag"`
	Branch   string         `yaml:"branch"`
	Strategy Strategy       `yaml:"strategy"`
	MaxSteps int            `yaml:"max_steps"`
	Bindings map[string]any `yaml:"bindings"`
}

type suiteMap struct {
	items []suiteMapEntry
}

type suiteMapEntry struct {
	name string
	spec *suiteYAML
}

// UnmarshalYAML keeps suites in document order.
func (sm *suiteMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == 0 || value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		sm.items = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("manifest: suites must be a mapping")
	}
	items := make([]suiteMapEntry, 0, len(value.Content)/2)
	for i := 0; i < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valueNode := value.Content[i+1]

		var key string
		if err := keyNode.Decode(&key); err != nil {
			return err
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("manifest: suites must not use empty keys")
		}
		entry := new(suiteYAML)
		if err := valueNode.Decode(entry); err != nil {
			return fmt.Errorf("manifest: suite %q: %w", key, err)
		}
		items = append(items, suiteMapEntry{name: key, spec: entry})
	}
	sm.items = items
	return nil
}

type stringList []string

func (l stringList) Clone() []string {
	if len(l) == 0 {
		return nil
	}
	out := make([]string, 0, len(l))
	for _, item := range l {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || strings.TrimSpace(value.Value) == "" {
			*l = nil
			return nil
		}
		*l = stringList{strings.TrimSpace(value.Value)}
		return nil
	case yaml.SequenceNode:
		items := make([]string, 0, len(value.Content))
		for _, node := range value.Content {
			var str string
			if err := node.Decode(&str); err != nil {
				return err
			}
			items = append(items, str)
		}
		*l = stringList(items)
		return nil
	case yaml.AliasNode:
		return l.UnmarshalYAML(value.Alias)
	case 0:
		*l = nil
		return nil
	default:
		return fmt.Errorf("manifest: expected string or sequence for list but found %s", value.ShortTag())
	}
}

func (mf manifestFile) toManifest(path string) *Manifest {
	capacity := len(mf.Suites.items)
	result := &Manifest{
		Path:         path,
		Name:         strings.TrimSpace(mf.Name),
		Suites:       make(map[string]*SuiteSpec, capacity),
		SuiteOrder:   make([]string, 0, capacity),
		suiteEntries: make([]manifestSuiteEntry, 0, capacity),
	}
	for _, item := range mf.Suites.items {
		raw := item.spec
		if raw == nil {
			continue
		}
		sanitized := sanitizeSegment(item.name)
		spec := &SuiteSpec{
			Name:         sanitized,
			OriginalName: item.name,
			Fixtures:     raw.Fixtures.Clone(),
			Git:          strings.TrimSpace(raw.Git),
			Rev:          strings.TrimSpace(raw.Rev),
			Tag:          strings.TrimSpace(raw.Tag),
			Branch:       strings.TrimSpace(raw.Branch),
			Strategy:     Strategy(strings.TrimSpace(string(raw.Strategy))),
			MaxSteps:     raw.MaxSteps,
			Bindings:     raw.Bindings,
		}
		if _, exists := result.Suites[sanitized]; !exists {
			result.Suites[sanitized] = spec
			result.SuiteOrder = append(result.SuiteOrder, sanitized)
		}
		result.suiteEntries = append(result.suiteEntries, manifestSuiteEntry{sanitized: sanitized, spec: spec})
	}
	return result
}

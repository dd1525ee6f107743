package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the manifest file looked for in a project directory.
const DefaultFileName = "package.yaml"

// Manifest is a parsed package.yaml. Parsing is lenient: fields the tool does
// not act on are ignored rather than rejected, since real manifests carry
// plenty of metadata beyond the build graph.
type Manifest struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	Synopsis string `yaml:"synopsis,omitempty"`

	// Dependencies apply to every component, in addition to each
	// component's own list.
	Dependencies []Dependency `yaml:"dependencies,omitempty"`

	Library     *Component           `yaml:"library,omitempty"`
	Executables map[string]Component `yaml:"executables,omitempty"`
	Tests       map[string]Component `yaml:"tests,omitempty"`
	Benchmarks  map[string]Component `yaml:"benchmarks,omitempty"`
}

// Component is one buildable unit: the library, an executable, a test suite,
// or a benchmark.
type Component struct {
	Main           string       `yaml:"main,omitempty"`
	SourceDirs     []string     `yaml:"source-dirs,omitempty"`
	ExposedModules []string     `yaml:"exposed-modules,omitempty"`
	GHCOptions     []string     `yaml:"ghc-options,omitempty"`
	Dependencies   []Dependency `yaml:"dependencies,omitempty"`
}

// ValidationError describes one problem found by Validate.
type ValidationError struct {
	Field   string
	Message string
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return m, nil
}

// LoadFromDir loads the manifest from a project directory (looks for
// package.yaml, then package.yml).
func LoadFromDir(dir string) (*Manifest, error) {
	for _, name := range []string{DefaultFileName, "package.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return nil, fmt.Errorf("no %s found in %s", DefaultFileName, dir)
}

// Parse parses manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest YAML: %w", err)
	}
	return &m, nil
}

// Validate performs basic validation on a manifest.
func Validate(m *Manifest) []ValidationError {
	var errors []ValidationError

	if m.Name == "" {
		errors = append(errors, ValidationError{
			Field:   "name",
			Message: "Package name is required",
		})
	}

	if m.Version == "" {
		errors = append(errors, ValidationError{
			Field:   "version",
			Message: "Version is required",
		})
	}

	if m.Library == nil && len(m.Executables) == 0 && len(m.Tests) == 0 && len(m.Benchmarks) == 0 {
		errors = append(errors, ValidationError{
			Field:   "components",
			Message: "Manifest declares no buildable components",
		})
	}

	return errors
}

// Components returns a read-only snapshot of every buildable component keyed
// by a stable label: "library", "executable:<name>", "test:<name>",
// "benchmark:<name>".
func (m *Manifest) Components() map[string]Component {
	components := make(map[string]Component)

	if m.Library != nil {
		components["library"] = *m.Library
	}
	for name, c := range m.Executables {
		components["executable:"+name] = c
	}
	for name, c := range m.Tests {
		components["test:"+name] = c
	}
	for name, c := range m.Benchmarks {
		components["benchmark:"+name] = c
	}

	return components
}

// DependsOn reports whether the component, or the manifest's shared
// dependency list, already names the package.
func (m *Manifest) DependsOn(c *Component, packageName string) bool {
	for _, dep := range m.Dependencies {
		if dep.Name == packageName {
			return true
		}
	}
	for _, dep := range c.Dependencies {
		if dep.Name == packageName {
			return true
		}
	}
	return false
}

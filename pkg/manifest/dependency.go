package manifest

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dependency is one entry in a component's dependency list. The on-disk form
// is the compact string package.yaml uses: a package name optionally followed
// by version bounds, e.g. "hspec >=2.7 && <3". Source-pinned dependencies
// carry a repository URL and revision instead of bounds; they are produced by
// the plugin overlay and have no on-disk form.
type Dependency struct {
	Name       string
	Constraint string
	SourceURL  string
	Revision   string
}

// ParseDependency parses the compact string form.
func ParseDependency(raw string) (Dependency, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Dependency{}, fmt.Errorf("dependency entry is empty")
	}

	return Dependency{
		Name:       fields[0],
		Constraint: strings.Join(fields[1:], " "),
	}, nil
}

// SourcePinned reports whether the dependency points at a repository revision
// rather than a registry version range.
func (d Dependency) SourcePinned() bool {
	return d.SourceURL != ""
}

// String renders the dependency in the compact form.
func (d Dependency) String() string {
	if d.SourcePinned() {
		return fmt.Sprintf("%s (source: %s@%s)", d.Name, d.SourceURL, d.Revision)
	}
	if d.Constraint == "" {
		return d.Name
	}
	return fmt.Sprintf("%s %s", d.Name, d.Constraint)
}

// UnmarshalYAML decodes the compact string form.
func (d *Dependency) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("dependency entries must be strings: %w", err)
	}

	parsed, err := ParseDependency(raw)
	if err != nil {
		return err
	}

	*d = parsed
	return nil
}

// MarshalYAML encodes the compact string form.
func (d Dependency) MarshalYAML() (interface{}, error) {
	if d.SourcePinned() {
		return nil, fmt.Errorf("source-pinned dependency %q has no manifest form", d.Name)
	}
	return d.String(), nil
}

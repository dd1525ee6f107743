package manifest

import (
	"github.com/stanzabuild/stanza/pkg/resolve"
)

// Overlay returns a deep copy of the manifest with every resolved plugin
// appended as a dependency of every buildable component. The input manifest
// is never mutated, and the result is a pure function of its arguments:
// applying Overlay to its own output changes nothing.
func Overlay(m *Manifest, resolved []resolve.ResolvedPackage) *Manifest {
	out := m.Clone()
	if len(resolved) == 0 {
		return out
	}

	deps := make([]Dependency, 0, len(resolved))
	for _, p := range resolved {
		deps = append(deps, dependencyFor(p))
	}

	if out.Library != nil {
		overlayComponent(out, out.Library, deps)
	}
	for name := range out.Executables {
		c := out.Executables[name]
		overlayComponent(out, &c, deps)
		out.Executables[name] = c
	}
	for name := range out.Tests {
		c := out.Tests[name]
		overlayComponent(out, &c, deps)
		out.Tests[name] = c
	}
	for name := range out.Benchmarks {
		c := out.Benchmarks[name]
		overlayComponent(out, &c, deps)
		out.Benchmarks[name] = c
	}

	return out
}

// overlayComponent appends the plugin dependencies the component does not
// already carry. Checking DependsOn against the growing list also collapses
// duplicate names within the plugin set itself.
func overlayComponent(m *Manifest, c *Component, deps []Dependency) {
	for _, dep := range deps {
		if m.DependsOn(c, dep.Name) {
			continue
		}
		c.Dependencies = append(c.Dependencies, dep)
	}
}

func dependencyFor(p resolve.ResolvedPackage) Dependency {
	if p.FromRegistry() {
		return Dependency{
			Name:       p.PackageName,
			Constraint: "== " + p.Version,
		}
	}
	return Dependency{
		Name:      p.DependencyName(),
		SourceURL: p.RepoURL,
		Revision:  p.Revision,
	}
}

// Clone returns a deep copy of the manifest.
func (m *Manifest) Clone() *Manifest {
	if m == nil {
		return nil
	}

	out := &Manifest{
		Name:         m.Name,
		Version:      m.Version,
		Synopsis:     m.Synopsis,
		Dependencies: append([]Dependency(nil), m.Dependencies...),
		Library:      cloneComponentPtr(m.Library),
		Executables:  cloneComponentMap(m.Executables),
		Tests:        cloneComponentMap(m.Tests),
		Benchmarks:   cloneComponentMap(m.Benchmarks),
	}
	if len(out.Dependencies) == 0 {
		out.Dependencies = nil
	}
	return out
}

func cloneComponentPtr(c *Component) *Component {
	if c == nil {
		return nil
	}
	copied := cloneComponent(*c)
	return &copied
}

func cloneComponentMap(components map[string]Component) map[string]Component {
	if components == nil {
		return nil
	}
	out := make(map[string]Component, len(components))
	for name, c := range components {
		out[name] = cloneComponent(c)
	}
	return out
}

func cloneComponent(c Component) Component {
	c.SourceDirs = append([]string(nil), c.SourceDirs...)
	c.ExposedModules = append([]string(nil), c.ExposedModules...)
	c.GHCOptions = append([]string(nil), c.GHCOptions...)
	c.Dependencies = append([]Dependency(nil), c.Dependencies...)
	return c
}

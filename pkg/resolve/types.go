package resolve

import (
	"fmt"
	"sort"
)

// ResolvedPackage is the concrete, fetchable form of one plugin request.
// Exactly one coordinate set is populated: registry (PackageName+Version) or
// source control (RepoURL+Revision). Records are immutable once the snapshot
// is built; the overlay and the encoder only read them.
type ResolvedPackage struct {
	Namespace   string
	DisplayName string
	EntryPoint  string

	// Registry coordinates.
	PackageName string
	Version     string

	// Source-control coordinates.
	RepoURL  string
	Revision string
}

// FromRegistry reports whether the package resolved against the registry.
func (p ResolvedPackage) FromRegistry() bool {
	return p.RepoURL == ""
}

// DependencyName is the package name the build graph should depend on.
func (p ResolvedPackage) DependencyName() string {
	if p.FromRegistry() {
		return p.PackageName
	}
	return p.DisplayName
}

// String renders the resolved coordinates for logs.
func (p ResolvedPackage) String() string {
	if p.FromRegistry() {
		return fmt.Sprintf("%s/%s %s-%s", p.Namespace, p.DisplayName, p.PackageName, p.Version)
	}
	return fmt.Sprintf("%s/%s %s@%s", p.Namespace, p.DisplayName, p.RepoURL, p.Revision)
}

// Snapshot is the immutable result of one resolution pass. The overlay and
// the encoder both read the same snapshot, so they always observe an
// identical view of what resolution produced.
type Snapshot struct {
	namespaces []string
	packages   map[string][]ResolvedPackage
}

// NewSnapshot builds a snapshot from per-namespace resolved packages, which
// must already be in plugin-set insertion order.
func NewSnapshot(packages map[string][]ResolvedPackage) *Snapshot {
	s := &Snapshot{
		namespaces: make([]string, 0, len(packages)),
		packages:   make(map[string][]ResolvedPackage, len(packages)),
	}

	for namespace, pkgs := range packages {
		if len(pkgs) == 0 {
			continue
		}
		s.namespaces = append(s.namespaces, namespace)
		s.packages[namespace] = append([]ResolvedPackage(nil), pkgs...)
	}
	sort.Strings(s.namespaces)

	return s
}

// Namespaces returns the non-empty namespaces in lexical order.
func (s *Snapshot) Namespaces() []string {
	return append([]string(nil), s.namespaces...)
}

// Packages returns the namespace's resolved packages in plugin-set insertion
// order. The returned slice is a copy.
func (s *Snapshot) Packages(namespace string) []ResolvedPackage {
	return append([]ResolvedPackage(nil), s.packages[namespace]...)
}

// All returns every resolved package, namespaces in lexical order and
// packages in insertion order within each.
func (s *Snapshot) All() []ResolvedPackage {
	var all []ResolvedPackage
	for _, namespace := range s.namespaces {
		all = append(all, s.packages[namespace]...)
	}
	return all
}

// Len counts the resolved packages across all namespaces.
func (s *Snapshot) Len() int {
	total := 0
	for _, pkgs := range s.packages {
		total += len(pkgs)
	}
	return total
}

// Empty reports whether the snapshot holds no packages.
func (s *Snapshot) Empty() bool {
	return s.Len() == 0
}

package plugins

import (
	"fmt"
	"sort"
)

// Set holds the merged plugin requests for a single namespace. Iteration
// order is the order display names were first declared, which downstream
// encoding depends on.
type Set struct {
	namespace string
	order     []string
	byName    map[string]PluginRequest
}

// NewSet creates an empty set for a namespace.
func NewSet(namespace string) *Set {
	return &Set{
		namespace: namespace,
		byName:    make(map[string]PluginRequest),
	}
}

// Namespace returns the namespace the set belongs to.
func (s *Set) Namespace() string {
	return s.namespace
}

// Len returns the number of merged requests.
func (s *Set) Len() int {
	return len(s.order)
}

// Get returns the request registered under a display name.
func (s *Set) Get(displayName string) (PluginRequest, bool) {
	req, ok := s.byName[displayName]
	return req, ok
}

// Requests returns the merged requests in first-seen declaration order. The
// returned slice is a copy.
func (s *Set) Requests() []PluginRequest {
	reqs := make([]PluginRequest, 0, len(s.order))
	for _, name := range s.order {
		reqs = append(reqs, s.byName[name])
	}
	return reqs
}

// put inserts or replaces a request. A replacement keeps the position the
// display name was first seen at.
func (s *Set) put(req PluginRequest) {
	if _, exists := s.byName[req.DisplayName]; !exists {
		s.order = append(s.order, req.DisplayName)
	}
	s.byName[req.DisplayName] = req
}

// Merge folds configuration layers into one set per namespace. Layers must be
// ordered lowest precedence first; a later layer's request replaces an
// earlier one with the same display name but keeps its first-seen position.
// The same display name declared twice within one layer is ambiguous and
// returns a ConfigError.
func Merge(layers []ConfigLayer) (map[string]*Set, error) {
	sets := make(map[string]*Set)

	for _, layer := range layers {
		for _, namespace := range sortedNamespaces(layer.Requests) {
			seen := make(map[string]bool)
			for _, req := range layer.Requests[namespace] {
				if seen[req.DisplayName] {
					return nil, newConfigError(layer.File, entryLabel(namespace, req.DisplayName, -1),
						fmt.Sprintf("plugin %q declared twice in namespace %q", req.DisplayName, namespace), nil)
				}
				seen[req.DisplayName] = true

				set, ok := sets[namespace]
				if !ok {
					set = NewSet(namespace)
					sets[namespace] = set
				}
				set.put(req)
			}
		}
	}

	return sets, nil
}

// SortedNamespaces returns the namespaces of a merged result in lexical
// order, for deterministic listings.
func SortedNamespaces(sets map[string]*Set) []string {
	namespaces := make([]string, 0, len(sets))
	for namespace := range sets {
		namespaces = append(namespaces, namespace)
	}
	sort.Strings(namespaces)
	return namespaces
}

// TotalRequests counts the requests across all merged namespaces.
func TotalRequests(sets map[string]*Set) int {
	total := 0
	for _, set := range sets {
		total += set.Len()
	}
	return total
}

func sortedNamespaces(requests map[string][]PluginRequest) []string {
	namespaces := make([]string, 0, len(requests))
	for namespace := range requests {
		namespaces = append(namespaces, namespace)
	}
	sort.Strings(namespaces)
	return namespaces
}

package plugins

import (
	"fmt"
	"regexp"
)

// EntryPointDelimiter joins entry points in encoded environment values.
// Entry points containing it are rejected at load time so consumers can
// split values unambiguously.
const EntryPointDelimiter = ","

var namespaceRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// ValidNamespace reports whether a namespace can serve as an environment
// variable name suffix.
func ValidNamespace(namespace string) bool {
	return namespaceRegex.MatchString(namespace)
}

// SourceKind identifies where a requested plugin package comes from.
type SourceKind string

const (
	// SourceRegistry resolves the display name against the package registry.
	SourceRegistry SourceKind = "registry"
	// SourceGitHub fetches a repository at a pinned revision.
	SourceGitHub SourceKind = "github"
)

// PluginRequest is one user-declared intent to use a plugin. Requests are
// immutable after merging; downstream components only read them.
type PluginRequest struct {
	// Namespace is the consumer family the plugin belongs to (e.g. "hspec").
	Namespace string
	// DisplayName uniquely identifies the request within its namespace.
	DisplayName string
	// Package is the registry package name. Defaults to DisplayName when the
	// request is registry-sourced.
	Package string
	// Constraint optionally restricts acceptable registry versions. Empty
	// means latest available.
	Constraint string
	// GitHub holds an "owner/repo" location for source-control requests.
	GitHub string
	// Ref is the pinned revision for source-control requests: a branch, tag,
	// or commit hash, resolved exactly as declared.
	Ref string
	// EntryPoint is the symbol or path the consumer loads.
	EntryPoint string

	// Layer and File record where the request was declared, for error
	// messages and logs.
	Layer string
	File  string
}

// Source reports whether the request resolves against the registry or a
// source-control location.
func (r PluginRequest) Source() SourceKind {
	if r.GitHub != "" {
		return SourceGitHub
	}
	return SourceRegistry
}

// PackageName returns the registry package to resolve, falling back to the
// display name when no explicit package was declared.
func (r PluginRequest) PackageName() string {
	if r.Package != "" {
		return r.Package
	}
	return r.DisplayName
}

// String renders the request for logs and error messages.
func (r PluginRequest) String() string {
	if r.Source() == SourceGitHub {
		return fmt.Sprintf("%s/%s (github:%s@%s)", r.Namespace, r.DisplayName, r.GitHub, r.Ref)
	}
	if r.Constraint != "" {
		return fmt.Sprintf("%s/%s (registry:%s %s)", r.Namespace, r.DisplayName, r.PackageName(), r.Constraint)
	}
	return fmt.Sprintf("%s/%s (registry:%s)", r.Namespace, r.DisplayName, r.PackageName())
}

// validate checks the fields a single entry must carry. The file and layer
// context is attached by the caller.
func (r PluginRequest) validate() error {
	if !ValidNamespace(r.Namespace) {
		return fmt.Errorf("namespace %q is not a valid identifier (must match %s)", r.Namespace, namespaceRegex.String())
	}
	if r.DisplayName == "" {
		return fmt.Errorf("entry is missing required field 'name'")
	}
	if r.EntryPoint == "" {
		return fmt.Errorf("entry is missing required field 'plugin'")
	}
	if containsDelimiter(r.EntryPoint) {
		return fmt.Errorf("entry point %q contains the reserved delimiter %q", r.EntryPoint, EntryPointDelimiter)
	}
	if r.GitHub != "" {
		if r.Ref == "" {
			return fmt.Errorf("github source %q requires a pinned 'ref'", r.GitHub)
		}
		if r.Constraint != "" {
			return fmt.Errorf("'version' cannot be combined with a github source")
		}
		if r.Package != "" {
			return fmt.Errorf("'package' cannot be combined with a github source")
		}
	} else if r.Ref != "" {
		return fmt.Errorf("'ref' requires a 'github' source")
	}
	return nil
}

func containsDelimiter(s string) bool {
	for i := 0; i < len(s); i++ {
		if string(s[i]) == EntryPointDelimiter {
			return true
		}
	}
	return false
}

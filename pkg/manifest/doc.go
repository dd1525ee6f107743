// Package manifest models package.yaml project manifests and overlays
// resolved plugin packages onto them.
//
// # Overview
//
// A manifest declares the package's metadata and its buildable components: an
// optional library, plus named executables, test suites, and benchmarks, each
// with its own dependency list. Load and Parse read the on-disk format
// leniently (real manifests carry many fields the tool does not act on);
// Overlay produces the augmented in-memory view the dependency solver
// consumes during plugin-eligible invocations.
//
// # Overlay Semantics
//
// Overlay is a pure function: it deep-copies the manifest and appends every
// resolved plugin as a dependency of every buildable component, because no
// component can be known in advance to be the one referencing the plugin's
// entry point. A component that already depends on the package (by name) is
// left untouched, so applying the overlay twice changes nothing. The
// augmented manifest is never written back to disk.
//
// # Related Packages
//
//   - pkg/resolve: produces the ResolvedPackage records Overlay consumes
//   - pkg/injector: decides when the overlay runs at all
package manifest

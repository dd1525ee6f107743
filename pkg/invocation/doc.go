// Package invocation describes a single run of the build tool and decides
// whether that run may inject plugins.
//
// # Overview
//
// Every command the tool executes is represented by a Context: which command
// was issued and whether the package being processed is the top-level target
// or a transitive dependency built on behalf of another package. Classify is
// the single authority on plugin eligibility; every other component consults
// its Decision before doing any plugin work, so the rules live in exactly one
// place.
//
// # Eligibility Rules
//
// Plugins are injected only for development commands (build, test, exec)
// issued against the top-level package. Packaging commands (install, sdist)
// and dependency builds never see plugins, which keeps published artifacts
// and downstream consumers free of local tooling.
//
// # Related Packages
//
//   - pkg/injector: short-circuits the pipeline on an ineligible Decision
package invocation

package injector

import (
	"time"

	"github.com/stanzabuild/stanza/pkg/envcodec"
	"github.com/stanzabuild/stanza/pkg/invocation"
	"github.com/stanzabuild/stanza/pkg/manifest"
	"github.com/stanzabuild/stanza/pkg/resolve"
)

// Plan is the outcome of one injection pass: everything the launcher needs to
// run the wrapped command.
type Plan struct {
	// Invocation is the classified invocation the plan was prepared for.
	Invocation invocation.Context

	// Decision records why plugins were or were not injected.
	Decision invocation.Decision

	// Manifest is the overlaid manifest for eligible invocations, or the
	// caller's manifest untouched for ineligible ones. Nil when the
	// invocation carries no manifest (bare exec outside a package).
	Manifest *manifest.Manifest

	// Snapshot holds the resolved plugins. Nil for ineligible invocations.
	Snapshot *resolve.Snapshot

	// Encoding holds the plugin environment variables. Never nil; empty
	// for ineligible invocations and empty plugin sets.
	Encoding *envcodec.Encoding

	// Duration is the wall time of the whole pass.
	Duration time.Duration
}

// Injected reports whether the pass actually resolved and encoded plugins.
func (p *Plan) Injected() bool {
	return p.Decision.Eligible && p.Snapshot != nil && p.Snapshot.Len() > 0
}

// Environ returns the plugin environment in "KEY=value" form, sorted by
// variable name. Empty for ineligible invocations.
func (p *Plan) Environ() []string {
	if p.Encoding == nil {
		return nil
	}
	return p.Encoding.Environ()
}

// PluginCount returns the number of resolved plugins in the plan.
func (p *Plan) PluginCount() int {
	if p.Snapshot == nil {
		return 0
	}
	return p.Snapshot.Len()
}

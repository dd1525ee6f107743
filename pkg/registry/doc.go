// Package registry talks to the package registry that hosts published
// plugins.
//
// # Overview
//
// The registry serves, per package, the list of published versions. Client
// wraps that API with the behavior a resolver needs in practice: bearer-token
// auth for private registries, bounded retries on transient failures, a
// client-side rate limit so concurrent resolution cannot hammer the host, and
// a short-lived in-process cache so one invocation never fetches the same
// package twice.
//
// Versions follow the dotted-integer convention of the package ecosystem
// (e.g. 2.9.0.1). Constraints restrict them: an exact version, a prefix
// wildcard "1.2.*", lower/upper bounds ">=A" / "<B", and conjunctions joined
// with "&&". An empty constraint accepts every version.
//
// # Usage Example
//
//	client := registry.NewClient(registry.DefaultConfig())
//	versions, err := client.Versions(ctx, "hspec-fancy")
//	if err != nil {
//		return err
//	}
//	c, _ := registry.ParseConstraint(">=2.0 && <3")
//	latest, ok := registry.LatestSatisfying(versions, c)
//
// # Related Packages
//
//   - pkg/resolve: picks concrete versions during plugin resolution
//   - pkg/registry/index: persistent cache of version lists between runs
package registry

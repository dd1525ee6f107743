// Package resolve turns merged plugin requests into concrete fetchable
// packages.
//
// # Overview
//
// Each request resolves independently: registry-sourced requests to the
// latest published version satisfying their constraint, github-sourced
// requests to the exact commit their pinned ref points at. Lookups run
// concurrently under a bounded worker pool; the first failure cancels the
// outstanding work and fails the whole pass.
//
// Resolution is all-or-nothing. A partially resolved plugin set would
// silently change consumer behavior in a way the user never asked for, so a
// single failing request means nothing is injected at all. Successful passes
// produce an immutable Snapshot that the manifest overlay and the
// environment encoder both read, guaranteeing the two observe one identical
// view.
//
// # Usage Example
//
//	resolver := resolve.New(registryClient, vcsClient, nil)
//	snapshot, err := resolver.Resolve(ctx, sets)
//	if err != nil {
//		var resErr *resolve.ResolutionError
//		if errors.As(err, &resErr) {
//			// resErr.Request names the plugin that failed.
//		}
//		return err
//	}
//
// # Related Packages
//
//   - pkg/registry: version listings and constraint matching
//   - pkg/vcs: ref to commit hash resolution
//   - pkg/manifest, pkg/envcodec: consumers of the snapshot
package resolve

// Package vcs resolves source-control plugin pins to exact revisions.
//
// # Overview
//
// A plugin declared with a github location carries a ref: a branch, a tag,
// or a commit hash. The build needs an exact revision, so Client asks the
// GitHub API which commit the ref points at today. A ref that is already a
// full 40-hex commit hash is returned verbatim without any network call;
// everything else resolves to whatever the host currently serves for that
// ref, exactly as declared, with no floating beyond it.
//
// # Related Packages
//
//   - pkg/resolve: calls ResolveRef for every github-sourced request
package vcs

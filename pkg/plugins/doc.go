// Package plugins models user-requested tool plugins and the layered configuration
// they are declared in.
//
// # Overview
//
// Developers declare plugins per consumer namespace (a test framework, a benchmark
// harness, a code generator) in configuration files that are never checked into
// version control. This package discovers those files, parses them strictly, and
// merges the layered requests into one canonical, conflict-resolved set per
// namespace.
//
// # Configuration Layers
//
// Two kinds of layers exist, ordered lowest precedence first:
//
//	user-global:  $STANZA_HOME/plugins.yaml (default ~/.stanza/plugins.yaml)
//	project:      .stanza/plugins.yaml, discovered by nearest-ancestor search
//	              from the working directory; nearer directories win
//
// A missing file yields an empty layer. A malformed file rejects the whole layer
// with a ConfigError naming the file and entry; entries are never dropped
// silently.
//
// # File Format
//
// Entries declare a display name, a source (registry package, or github+ref), and
// the entry point the consumer will load:
//
//	plugins:
//	  hspec:
//	    - name: hspec-fancy
//	      plugin: Formatters.progress
//	    - name: hspec-foo
//	      github: fancy-org/hspec-foo
//	      ref: 59e9b0e
//	      plugin: Foo.plugin
//
// # Merge Semantics
//
// Within a namespace, requests are keyed by display name. A higher-precedence
// layer's entry replaces a lower one but keeps the position where the name was
// first seen, so overrides never reorder the encoded environment output. The same
// display name twice in one layer is ambiguous and rejected.
//
// # Related Packages
//
//   - pkg/resolve: turns merged requests into fetchable package references
//   - pkg/envcodec: encodes merged sets into consumer environment variables
package plugins

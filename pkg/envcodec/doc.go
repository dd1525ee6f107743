// Package envcodec serializes resolved plugin sets into the environment
// variable protocol consumers read.
//
// # Overview
//
// Each namespace with at least one resolved plugin becomes exactly one
// variable: the fixed prefix HASKELL_PLUGINS_ plus the upper-cased namespace,
// its value the entry points joined with "," in plugin-set declaration order.
// A namespace with no plugins produces no variable at all; consumers treat an
// absent variable as "plugins do not exist", which is the degradation
// contract this tool relies on.
//
// Example:
//
//	HASKELL_PLUGINS_HSPEC=Formatters.progress,Foo.plugin
//
// Encoding is deterministic: identical snapshots produce byte-identical
// Environ output. Entry points are never quoted or escaped; one containing
// the delimiter is rejected with an EncodingError (the loader already rejects
// it earlier).
//
// # Related Packages
//
//   - pkg/resolve: produces the snapshot the encoder reads
//   - pkg/launch: applies the encoding to child processes
package envcodec

// Package cli provides the stanza command-line interface.
//
// # Overview
//
// This package implements the `stanza` CLI: build, test, and exec run the
// Haskell toolchain with the configured plugins resolved and injected;
// install and sdist run it clean. The plugins subcommands inspect the
// configuration without running anything.
//
// # Commands
//
// build: Build the package with plugins injected
//
//	stanza build
//	stanza build --watch --plugin-refresh "0 * * * *"
//	stanza build -- --ghc-options=-Wall
//
// test: Run the test suites with plugins injected
//
//	stanza test
//	stanza test -- --test-show-details=streaming
//
// exec: Run any command in the plugin environment
//
//	stanza exec -- ghci
//	stanza exec -- doctest src/
//
// install, sdist: Packaging commands, plugins never injected
//
//	stanza install
//	stanza sdist
//
// plugins: Inspect configuration
//
//	stanza plugins list
//	stanza plugins env
//
// # Configuration
//
// Settings come from flags, STANZA_* environment variables, and
// $STANZA_HOME/config.yaml, in that order of precedence:
//
//	export STANZA_REGISTRY_URL="https://registry.example.org"
//	# Or use --registry-url
//
// Plugin declarations are separate, in $STANZA_HOME/plugins.yaml and the
// project's .stanza/plugins.yaml files.
//
// # Related Packages
//
//   - pkg/injector: Runs the resolution pipeline behind every command
//   - pkg/launch: Starts the toolchain with the plugin environment
package cli

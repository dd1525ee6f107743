// Package injector runs the plugin injection pipeline for one tool invocation.
//
// # Overview
//
// The Engine ties the other plugin packages together: it classifies the
// invocation, loads and merges the config layers, resolves every request,
// overlays the manifest, and encodes the environment variables. The result is
// a Plan describing exactly what the launched command will see.
//
// The pipeline is all-or-nothing past classification. An ineligible
// invocation short-circuits to a Plan that leaves the manifest untouched and
// emits no variables; any later failure aborts the whole pass so a build can
// never observe a partially injected plugin set.
//
// # Usage Example
//
//	engine, err := injector.New(injector.Config{
//		Loader:   plugins.NewLoader(userFile, workDir, log),
//		Resolver: resolve.New(registryClient, vcsClient, nil),
//		Log:      log,
//	})
//	if err != nil {
//		return err
//	}
//
//	plan, err := engine.Prepare(ctx, inv, m)
//	if err != nil {
//		return err
//	}
//	cmd.Env = append(os.Environ(), plan.Environ()...)
//
// # Related Packages
//
//   - pkg/invocation: Eligibility classification
//   - pkg/plugins: Config layers and precedence merge
//   - pkg/resolve: Concurrent version/ref resolution
//   - pkg/manifest: Dependency overlay
//   - pkg/envcodec: Environment encoding
//   - pkg/launch: Applies the Plan to a subprocess
package injector

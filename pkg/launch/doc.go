// Package launch starts consumer subprocesses with the plugin environment
// applied.
//
// # Overview
//
// The encoder's output is an immutable map; this package is the one place it
// is turned into a process write. The write is scoped to the child: Launcher
// builds the child's environment explicitly from a base environment plus the
// encoding, and never mutates the parent process environment.
//
// # Usage Example
//
//	launcher := launch.NewLauncher(log)
//	result, err := launcher.Run(ctx, &launch.Request{
//		Program: "cabal",
//		Args:    []string{"test"},
//		Dir:     plan.Invocation.WorkDir,
//		Plugins: plan.Encoding,
//	})
//	if err != nil && result != nil && result.ExitCode > 0 {
//		os.Exit(result.ExitCode)
//	}
//
// # Related Packages
//
//   - pkg/envcodec: produces the environment encoding applied here
//   - pkg/injector: assembles the plan whose encoding is launched with
package launch

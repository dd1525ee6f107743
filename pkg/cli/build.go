package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stanzabuild/stanza/pkg/injector"
	"github.com/stanzabuild/stanza/pkg/invocation"
)

type buildOptions struct {
	asDependency bool
	watch        bool
	refreshSpec  string
	metricsAddr  string
}

func newBuildCommand() *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build [flags] [-- toolchain-args...]",
		Short: "Build the package with configured plugins injected",
		Long: heredoc.Doc(`
			Build resolves the plugins declared for this project, adds them to
			the build plan as dependencies, and runs the toolchain with the
			plugin environment set.

			With --watch, stanza stays running and rebuilds when source files
			or plugin configuration change. --plugin-refresh re-resolves
			plugins on a cron schedule, picking up newly published versions
			during long sessions.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevCommand(cmd, args, invocation.CommandBuild, opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.asDependency, "as-dependency", false, "build as a dependency of another package")
	flags.BoolVar(&opts.watch, "watch", false, "rebuild when files change")
	flags.StringVar(&opts.refreshSpec, "plugin-refresh", "", "cron schedule for re-resolving plugins in watch mode")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics and /health on this address in watch mode")
	_ = flags.MarkHidden("as-dependency")

	return cmd
}

// runDevCommand is the shared path for build and test: one pipeline pass,
// then the toolchain subcommand named after the invocation.
func runDevCommand(cmd *cobra.Command, args []string, kind invocation.CommandKind, opts buildOptions) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("cannot determine working directory: %w", err)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, settingsFromViper(viper.GetViper()), workDir)
	if err != nil {
		return err
	}
	defer a.Close()

	pass := func(passCtx context.Context) error {
		plan, err := a.prepare(passCtx, kind, opts.asDependency, true)
		if err != nil {
			return err
		}
		reportPlan(cmd, plan)
		return a.launchToolchain(passCtx, plan, append([]string{string(kind)}, args...))
	}

	if opts.watch {
		return a.watchLoop(ctx, cmd, pass, watchOptions{
			refreshSpec: opts.refreshSpec,
			metricsAddr: opts.metricsAddr,
		})
	}
	return pass(ctx)
}

// reportPlan prints a one-line injection summary for eligible passes.
func reportPlan(cmd *cobra.Command, plan *injector.Plan) {
	if plan.Injected() {
		color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "✓ injected %d plugin(s) across %d namespace(s)\n",
			plan.PluginCount(), len(plan.Snapshot.Namespaces()))
	}
}

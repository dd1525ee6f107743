package cli

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/stanzabuild/stanza/pkg/invocation"
)

func newTestCommand() *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "test [flags] [-- toolchain-args...]",
		Short: "Build and run test suites with configured plugins injected",
		Long: heredoc.Doc(`
			Test runs the package's test suites through the toolchain. Plugins
			declared for this project are resolved, added as dependencies of
			every component, and announced to test drivers through the plugin
			environment variables.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevCommand(cmd, args, invocation.CommandTest, opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.asDependency, "as-dependency", false, "build as a dependency of another package")
	_ = flags.MarkHidden("as-dependency")

	return cmd
}

package cli

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/stanzabuild/stanza/pkg/invocation"
)

func newSDistCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sdist [flags] [-- toolchain-args...]",
		Short: "Create a source distribution without injecting plugins",
		Long: heredoc.Doc(`
			Sdist packs the package sources into a distributable archive.
			Like install, sdist is a packaging command and never injects
			plugins, so the archive matches the declared manifest.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPackagingCommand(cmd, args, invocation.CommandSDist)
		},
	}
	return cmd
}

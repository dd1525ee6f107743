package cli

import (
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stanzabuild/stanza/pkg/invocation"
)

func newExecCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec -- <command> [args...]",
		Short: "Run a command in the project environment with plugins injected",
		Long: heredoc.Doc(`
			Exec runs an arbitrary command with the plugin environment
			variables set, the way build and test launch the toolchain. Use it
			to run REPLs, code generators, or other plugin consumers by hand.

			Exec works outside a package too: with no manifest there is
			nothing to overlay, but the environment is still injected.

			Example:
			  stanza exec -- ghci
			  stanza exec -- doctest src/`),
		Args: cobra.MinimumNArgs(1),
		RunE: runExec,
	}
	return cmd
}

func runExec(cmd *cobra.Command, args []string) error {
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

	plan, err := a.prepare(ctx, invocation.CommandExec, false, false)
	if err != nil {
		return err
	}
	reportPlan(cmd, plan)

	return a.launchProgram(ctx, plan, args[0], args[1:])
}

package cli

import (
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stanzabuild/stanza/pkg/invocation"
)

func newInstallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [flags] [-- toolchain-args...]",
		Short: "Install the package without injecting plugins",
		Long: heredoc.Doc(`
			Install builds and installs the package exactly as declared.
			Packaging commands never inject plugins: an installed artifact
			must not depend on the developer's local plugin configuration.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPackagingCommand(cmd, args, invocation.CommandInstall)
		},
	}
	return cmd
}

// runPackagingCommand is the shared path for install and sdist. The
// pipeline still runs so the pass is classified and counted, but the
// classifier vetoes injection and the toolchain sees a clean environment.
func runPackagingCommand(cmd *cobra.Command, args []string, kind invocation.CommandKind) error {
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

	plan, err := a.prepare(ctx, kind, false, true)
	if err != nil {
		return err
	}
	if !plan.Decision.Eligible {
		color.New(color.Faint).Fprintf(cmd.ErrOrStderr(), "plugins skipped: %s\n", plan.Decision.Reason)
	}

	return a.launchToolchain(ctx, plan, append([]string{string(kind)}, args...))
}

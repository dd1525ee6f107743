package cli

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// exitError carries a child process exit code up to main.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// ExitCode returns the process exit code for err: a child's code when the
// error carries one, 1 for any other error, 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if exit, ok := err.(*exitError); ok {
		return exit.code
	}
	return 1
}

// NewRootCommand creates the stanza command tree.
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stanza",
		Short: "Stanza - a Haskell package build tool with plugin injection",
		Long: heredoc.Doc(`
			Stanza builds Haskell-style packages described by package.yaml
			manifests, and injects build-tool plugins declared in layered
			plugins.yaml files: the user-global file under $STANZA_HOME and
			.stanza/plugins.yaml files discovered from the working directory
			upward, nearest directory winning.

			Plugins only apply to development commands (build, test, exec)
			against the package you invoke stanza in. Packaging commands and
			dependency builds never see them.`),
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "settings file (default $STANZA_HOME/config.yaml)")
	flags.String("home", "", "stanza home directory (default $STANZA_HOME or ~/.stanza)")
	flags.String("registry-url", "", "package registry URL")
	flags.String("log-level", "", "log level (debug, info, warning, error)")
	flags.String("log-format", "", "log format (text, json)")

	cobra.OnInitialize(func() {
		v := viper.GetViper()
		bindFlag(v, keyHome, flags.Lookup("home"))
		bindFlag(v, keyRegistryURL, flags.Lookup("registry-url"))
		bindFlag(v, keyLogLevel, flags.Lookup("log-level"))
		bindFlag(v, keyLogFormat, flags.Lookup("log-format"))

		configFile, _ := flags.GetString("config")
		if err := configureViper(v, configFile); err != nil {
			fmt.Fprintln(rootCmd.ErrOrStderr(), err)
		}
	})

	rootCmd.AddCommand(newBuildCommand())
	rootCmd.AddCommand(newTestCommand())
	rootCmd.AddCommand(newExecCommand())
	rootCmd.AddCommand(newInstallCommand())
	rootCmd.AddCommand(newSDistCommand())
	rootCmd.AddCommand(newPluginsCommand())

	return rootCmd
}

// bindFlag binds a dotted viper key to a flag, but only when the flag was
// actually set, so empty flag values never mask config or environment.
func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if flag != nil && flag.Changed {
		_ = v.BindPFlag(key, flag)
	}
}

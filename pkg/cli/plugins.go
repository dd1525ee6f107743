package cli

import (
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stanzabuild/stanza/pkg/invocation"
	"github.com/stanzabuild/stanza/pkg/observability"
	"github.com/stanzabuild/stanza/pkg/plugins"
)

func newPluginsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect the plugin configuration for this project",
	}
	cmd.AddCommand(newPluginsListCommand())
	cmd.AddCommand(newPluginsEnvCommand())
	return cmd
}

func newPluginsListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the plugins that would be injected here",
		Long: heredoc.Doc(`
			List merges the user-global and project plugin configuration and
			prints the effective set per namespace, including which layer each
			declaration came from. Nothing is resolved: list works offline and
			shows intent, not pinned versions.`),
		Args: cobra.NoArgs,
		RunE: runPluginsList,
	}
	return cmd
}

func runPluginsList(cmd *cobra.Command, _ []string) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("cannot determine working directory: %w", err)
	}

	settings := settingsFromViper(viper.GetViper())
	log := observability.NewLogger(observability.LoggerConfig{
		Level:  settings.LogLevel,
		Format: settings.LogFormat,
		Output: cmd.ErrOrStderr(),
	})

	layers, err := plugins.NewLoader(settings.UserConfigFile(), workDir, log).Load()
	if err != nil {
		return err
	}
	sets, err := plugins.Merge(layers)
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no plugins configured")
		return nil
	}

	table := uitable.New()
	table.MaxColWidth = 60
	table.AddRow("NAMESPACE", "NAME", "SOURCE", "ENTRY POINT", "LAYER")
	for _, namespace := range plugins.SortedNamespaces(sets) {
		for _, req := range sets[namespace].Requests() {
			table.AddRow(namespace, req.DisplayName, sourceLabel(req), req.EntryPoint, req.Layer)
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), table)
	return nil
}

// sourceLabel renders where a request resolves from, without repeating the
// namespace and name columns.
func sourceLabel(req plugins.PluginRequest) string {
	if req.Source() == plugins.SourceGitHub {
		return fmt.Sprintf("github:%s@%s", req.GitHub, req.Ref)
	}
	if req.Constraint != "" {
		return fmt.Sprintf("registry:%s %s", req.PackageName(), req.Constraint)
	}
	return "registry:" + req.PackageName()
}

func newPluginsEnvCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Print the resolved plugin environment",
		Long: heredoc.Doc(`
			Env runs the full resolution pipeline and prints the plugin
			environment variables, one KEY=value per line. Use it to inspect
			what build and test would inject, or to export the variables into
			another tool:

			  export $(stanza plugins env)`),
		Args: cobra.NoArgs,
		RunE: runPluginsEnv,
	}
	return cmd
}

func runPluginsEnv(cmd *cobra.Command, _ []string) error {
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
	for _, kv := range plan.Environ() {
		fmt.Fprintln(cmd.OutOrStdout(), kv)
	}
	return nil
}

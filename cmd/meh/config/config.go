// Package configcmder provides the config command for managing persistent
// meh configuration stored in the .meh/ directory.
package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/pkg/cliui"
	"github.com/papercomputeco/meh/pkg/config"
)

const configLongDesc string = `Manage persistent meh configuration.

Configuration is stored as config.toml in the .meh/ directory and provides
default values for command flags. CLI flags and MEH_* environment variables
take precedence over config file values.

Keys use dotted notation matching the TOML section structure, for example
write.policy, storage.driver, search.token_budget or trust.ai_base. Run
"meh config list" for every key.

Use subcommands to get, set, or list configuration values:
  meh config set <key> <value>    Set a configuration value
  meh config get <key>            Get a configuration value
  meh config list                 List all configuration values

Examples:
  meh config set write.policy ask
  meh config set user.name alice
  meh config get search.default_limit
  meh config list`

const configShortDesc string = "Manage persistent meh configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(out io.Writer, cfger *config.Configer) {
	fmt.Fprintln(out)
	cliui.Fprintln(out, "  ", cliui.KeyStyle.Render("Config file:"), " ", cliui.DimStyle.Render(cfger.GetTarget()))
	fmt.Fprintln(out)
}

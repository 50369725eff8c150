package configcmder

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/pkg/cliui"
	"github.com/papercomputeco/meh/pkg/config"
)

const setLongDesc string = `Set a configuration value.

Sets the given key to the provided value in the config.toml file stored in
the .meh/ directory, creating the file if needed. Values are validated
against the key: numbers for limits and trust constants, one of a fixed set
for storage.driver, write.policy, core.default_source and events.provider.

Examples:
  meh config set write.policy ask
  meh config set storage.driver postgres
  meh config set trust.decay_rate 0.02`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "set <key> <value>",
		Short:             setShortDesc,
		Long:              setLongDesc,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(cmd, args[0], args[1], configDir)
		},
	}

	return cmd
}

func runSet(cmd *cobra.Command, key, value, configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return err
	}

	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printTarget(out, cfger)
	cliui.Fprintln(out, "  ", cliui.SuccessMark, " Set ", cliui.KeyStyle.Render(key), " = ", cliui.ValueStyle.Render(value))
	return nil
}

package configcmder

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/pkg/cliui"
	"github.com/papercomputeco/meh/pkg/config"
)

const getLongDesc string = `Get a configuration value.

Reads the value for the given key from the config.toml file stored in the
.meh/ directory. Keys the file leaves out show their defaults.

Examples:
  meh config get write.policy
  meh config get trust.ai_base`

const getShortDesc string = "Get a configuration value"

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "get <key>",
		Short:             getShortDesc,
		Long:              getLongDesc,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runGet(cmd, args[0], configDir)
		},
	}

	return cmd
}

func runGet(cmd *cobra.Command, key, configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return err
	}

	value, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if value == "" {
		cliui.Fprintln(out, cliui.KeyStyle.Render(key), "  ", cliui.DimStyle.Render("<not set>"))
	} else {
		cliui.Fprintln(out, cliui.KeyStyle.Render(key), "  ", cliui.ValueStyle.Render(value))
	}
	return nil
}

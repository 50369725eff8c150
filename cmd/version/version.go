// Package versioncmder provides the version command.
package versioncmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/pkg/utils"
)

type VersionCommander struct {
	short bool
}

func NewVersionCmd() *cobra.Command {
	cmder := &VersionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the meh version",
		Long:  "Print the version, commit and build time of this meh binary.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}
	cmd.Flags().BoolVar(&cmder.short, "short", false, "Print only the version")

	return cmd
}

func (c *VersionCommander) run(cmd *cobra.Command) error {
	if c.short {
		fmt.Fprintln(cmd.OutOrStdout(), utils.Version)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), utils.VersionString())
	return nil
}

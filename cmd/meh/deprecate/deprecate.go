// Package deprecatecmder provides the deprecate command.
package deprecatecmder

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/cmd/meh/mehenv"
	"github.com/papercomputeco/meh/pkg/cliui"
	"github.com/papercomputeco/meh/pkg/config"
)

type deprecateCommander struct {
	reason string

	store  mehenv.StoreFlags
	policy string
}

const deprecateLongDesc string = `Deprecate a fact.

Deprecated facts drop out of search and browse, stay visible in history,
and are removed by meh gc once the retention period has passed.

Examples:
  meh deprecate meh-01hq3k2a --reason "service retired"`

const deprecateShortDesc string = "Deprecate a fact"

func NewDeprecateCmd() *cobra.Command {
	cmder := &deprecateCommander{}

	cmd := &cobra.Command{
		Use:   "deprecate <id|path>",
		Short: deprecateShortDesc,
		Long:  deprecateLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.reason, "reason", "r", "", "Why the fact is deprecated")
	cmder.store.Register(cmd)
	config.AddStringFlag(cmd, config.Flags, config.FlagPolicy, &cmder.policy)

	return cmd
}

func (c *deprecateCommander) run(cmd *cobra.Command, ref string) error {
	ctx := context.Background()

	env, err := mehenv.Load(cmd, append(config.StoreFlags, config.FlagPolicy)...)
	if err != nil {
		return err
	}
	svc, err := env.Service(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	f, err := svc.Deprecate(ctx, ref, c.reason)
	if err != nil {
		return err
	}

	cliui.Fprintln(cmd.OutOrStdout(),
		cliui.SuccessMark, " Deprecated ",
		cliui.IDStyle.Render(f.MehID()), " at ", cliui.PathStyle.Render(f.Path),
	)
	return nil
}

// Package extendcmder provides the extend command for adding to a fact
// without replacing it.
package extendcmder

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/cmd/meh/mehenv"
	"github.com/papercomputeco/meh/pkg/cliui"
	"github.com/papercomputeco/meh/pkg/config"
	"github.com/papercomputeco/meh/pkg/fact"
)

type extendCommander struct {
	store  mehenv.StoreFlags
	policy string
}

const extendLongDesc string = `Extend a fact with additional information.

Writes a new fact at the same path that references the original. Both stay
active. Content is taken from the second argument, or read from stdin when
it is omitted or "-".

Examples:
  meh extend meh-01hq3k2a "Writes use a separate 120s timeout."`

const extendShortDesc string = "Extend a fact"

func NewExtendCmd() *cobra.Command {
	cmder := &extendCommander{}

	cmd := &cobra.Command{
		Use:   "extend <id|path> [content]",
		Short: extendShortDesc,
		Long:  extendLongDesc,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args)
		},
	}

	cmder.store.Register(cmd)
	config.AddStringFlag(cmd, config.Flags, config.FlagPolicy, &cmder.policy)

	return cmd
}

func (c *extendCommander) run(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	content, err := mehenv.Content(cmd, args, 1)
	if err != nil {
		return err
	}

	env, err := mehenv.Load(cmd, append(config.StoreFlags, config.FlagPolicy)...)
	if err != nil {
		return err
	}
	svc, err := env.Service(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	f, err := svc.Extend(ctx, args[0], content)
	if err != nil {
		return err
	}

	verb := "Extended"
	if f.Status == fact.StatusPendingReview {
		verb = "Extension queued for review"
	}
	cliui.Fprintln(cmd.OutOrStdout(),
		cliui.SuccessMark, " ", verb, ": ",
		cliui.IDStyle.Render(f.MehID()), " at ", cliui.PathStyle.Render(f.Path),
	)
	return nil
}

// Package correctcmder provides the correct command for superseding a fact
// with corrected content.
package correctcmder

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/cmd/meh/mehenv"
	"github.com/papercomputeco/meh/pkg/cliui"
	"github.com/papercomputeco/meh/pkg/config"
	"github.com/papercomputeco/meh/pkg/fact"
)

type correctCommander struct {
	store  mehenv.StoreFlags
	policy string
}

const correctLongDesc string = `Correct a fact.

Writes a correction at the same path that supersedes the fact. The original
stays in history (see meh history) but no longer appears in search. Content
is taken from the second argument, or read from stdin when it is omitted
or "-".

Under the "ask" write policy the correction waits for review and the
original stays active until it is approved.

Examples:
  meh correct meh-01hq3k2a "The API times out after 60s."
  meh correct @products/alpha/api/timeout < timeout.md`

const correctShortDesc string = "Correct a fact"

func NewCorrectCmd() *cobra.Command {
	cmder := &correctCommander{}

	cmd := &cobra.Command{
		Use:   "correct <id|path> [content]",
		Short: correctShortDesc,
		Long:  correctLongDesc,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args)
		},
	}

	cmder.store.Register(cmd)
	config.AddStringFlag(cmd, config.Flags, config.FlagPolicy, &cmder.policy)

	return cmd
}

func (c *correctCommander) run(cmd *cobra.Command, args []string) error {
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

	f, err := svc.Correct(ctx, args[0], content)
	if err != nil {
		return err
	}

	verb := "Corrected"
	if f.Status == fact.StatusPendingReview {
		verb = "Correction queued for review"
	}
	cliui.Fprintln(cmd.OutOrStdout(),
		cliui.SuccessMark, " ", verb, ": ",
		cliui.IDStyle.Render(f.MehID()), " replaces ",
		cliui.IDStyle.Render(fact.MehIDPrefix+fact.ShortID(*f.Supersedes)),
	)
	return nil
}

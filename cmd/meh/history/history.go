// Package historycmder provides the history command for showing a fact's
// supersession chain.
package historycmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/cmd/meh/mehenv"
	"github.com/papercomputeco/meh/pkg/cliui"
	"github.com/papercomputeco/meh/pkg/config"
)

type historyCommander struct {
	store mehenv.StoreFlags
}

const historyLongDesc string = `Show the history of a fact.

Prints the chain of facts a fact replaced, oldest first, followed by the
facts that later replaced it. The requested fact is marked with ">".

Examples:
  meh history meh-01hq3k2a
  meh history @products/alpha/api/timeout`

const historyShortDesc string = "Show a fact's history"

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history <id|path>",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmder.store.Register(cmd)

	return cmd
}

func (c *historyCommander) run(cmd *cobra.Command, ref string) error {
	ctx := context.Background()

	env, err := mehenv.Load(cmd, config.StoreFlags...)
	if err != nil {
		return err
	}
	svc, err := env.Service(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	h, err := svc.History(ctx, ref)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	width := cliui.Width(out) - 2

	last := len(h.Chain) - 1
	for i, f := range h.Chain {
		marker := "  "
		if i == last {
			marker = cliui.TitleStyle.Render(">") + " "
		}
		cliui.Fprintln(out, marker, cliui.FactLine(f, width))
	}
	for _, f := range h.Superseding {
		cliui.Fprintln(out, "  ", cliui.FactLine(f, width))
	}

	if len(h.Superseding) > 0 {
		fmt.Fprintln(out)
		newest := h.Superseding[len(h.Superseding)-1]
		cliui.Fprintln(out, cliui.DimStyle.Render("current version: "+newest.MehID()))
	}
	return nil
}

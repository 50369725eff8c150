// Package pendingcmder provides the pending command for reviewing facts
// written under the "ask" write policy.
package pendingcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/cmd/meh/mehenv"
	"github.com/papercomputeco/meh/pkg/cliui"
	"github.com/papercomputeco/meh/pkg/config"
	"github.com/papercomputeco/meh/pkg/fact"
	"github.com/papercomputeco/meh/pkg/service"
)

const pendingLongDesc string = `Review facts waiting for approval.

With the write policy set to "ask", new facts, corrections and extensions
are held as pending until a person approves or rejects them. Approving a
correction supersedes the fact it corrects. Rejecting deletes the fact.

Examples:
  meh pending
  meh pending approve meh-01hq3k2a
  meh pending reject meh-01hq3k2b`

const pendingShortDesc string = "Review pending facts"

func NewPendingCmd() *cobra.Command {
	store := &mehenv.StoreFlags{}

	cmd := &cobra.Command{
		Use:   "pending",
		Short: pendingShortDesc,
		Long:  pendingLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}
	store.Register(cmd)

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newReviewCmd("approve", "Approve a pending fact", "Approved", (*service.Service).Approve))
	cmd.AddCommand(newReviewCmd("reject", "Reject and delete a pending fact", "Rejected", (*service.Service).Reject))

	return cmd
}

func newListCmd() *cobra.Command {
	store := &mehenv.StoreFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending facts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}
	store.Register(cmd)

	return cmd
}

type reviewFunc func(*service.Service, context.Context, string) (*fact.Fact, error)

func newReviewCmd(use, short, verb string, review reviewFunc) *cobra.Command {
	store := &mehenv.StoreFlags{}

	cmd := &cobra.Command{
		Use:   use + " <id|path>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svc, err := openService(ctx, cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			f, err := review(svc, ctx, args[0])
			if err != nil {
				return err
			}

			cliui.Fprintln(cmd.OutOrStdout(),
				cliui.SuccessMark, " ", verb, " ",
				cliui.IDStyle.Render(f.MehID()), " at ", cliui.PathStyle.Render(f.Path),
			)
			return nil
		},
	}
	store.Register(cmd)

	return cmd
}

func runList(cmd *cobra.Command) error {
	ctx := context.Background()

	svc, err := openService(ctx, cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	facts, err := svc.Pending(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(facts) == 0 {
		fmt.Fprintln(out, "No facts pending review.")
		return nil
	}

	width := cliui.Width(out)
	for _, f := range facts {
		cliui.Fprintln(out, cliui.FactLine(f, width))
		if f.Supersedes != nil {
			cliui.Fprintln(out, "  ", cliui.DimStyle.Render("corrects "+fact.MehIDPrefix+fact.ShortID(*f.Supersedes)))
		}
	}
	fmt.Fprintln(out)
	cliui.Fprintln(out, cliui.DimStyle.Render(fmt.Sprintf("%d pending", len(facts))))
	return nil
}

func openService(ctx context.Context, cmd *cobra.Command) (*service.Service, error) {
	env, err := mehenv.Load(cmd, config.StoreFlags...)
	if err != nil {
		return nil, err
	}
	return env.Service(ctx)
}

// Package addcmder provides the add command for writing new facts.
package addcmder

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/cmd/meh/mehenv"
	"github.com/papercomputeco/meh/pkg/cliui"
	"github.com/papercomputeco/meh/pkg/config"
	"github.com/papercomputeco/meh/pkg/fact"
	"github.com/papercomputeco/meh/pkg/service"
)

type addCommander struct {
	title     string
	tags      []string
	namespace string

	store  mehenv.StoreFlags
	policy string
}

const addLongDesc string = `Add a new fact at a path.

Content is taken from the second argument, or read from stdin when it is
omitted or "-". The title defaults to the first line of the content.

Under the "ask" write policy the fact is queued for review; see
meh pending.

Examples:
  meh add @products/alpha/api/timeout "The API times out after 30s."
  meh add @team/oncall --title "On-call rota" --tags ops,rota < rota.md`

const addShortDesc string = "Add a new fact"

func NewAddCmd() *cobra.Command {
	cmder := &addCommander{}

	cmd := &cobra.Command{
		Use:   "add <path> [content]",
		Short: addShortDesc,
		Long:  addLongDesc,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args)
		},
	}

	cmd.Flags().StringVarP(&cmder.title, "title", "t", "", "Fact title (default: first line of content)")
	cmd.Flags().StringSliceVar(&cmder.tags, "tags", nil, "Comma separated tags")
	cmd.Flags().StringVar(&cmder.namespace, "namespace", "", "Namespace to file the fact under")
	cmder.store.Register(cmd)
	config.AddStringFlag(cmd, config.Flags, config.FlagPolicy, &cmder.policy)

	return cmd
}

func (c *addCommander) run(cmd *cobra.Command, args []string) error {
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

	f, err := svc.Add(ctx, service.AddRequest{
		Path:      args[0],
		Title:     c.title,
		Content:   content,
		Tags:      c.tags,
		Namespace: c.namespace,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	verb := "Added"
	if f.Status == fact.StatusPendingReview {
		verb = "Queued for review"
	}
	cliui.Fprintln(out, cliui.SuccessMark, " ", verb, " ", cliui.IDStyle.Render(f.MehID()), " at ", cliui.PathStyle.Render(f.Path))
	return nil
}

// Package browsecmder provides the browse command for walking the path
// hierarchy.
package browsecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/cmd/meh/mehenv"
	"github.com/papercomputeco/meh/pkg/cliui"
	"github.com/papercomputeco/meh/pkg/config"
	"github.com/papercomputeco/meh/pkg/storage"
)

type browseCommander struct {
	limit  int
	cursor string

	store mehenv.StoreFlags
}

const browseLongDesc string = `Browse the path hierarchy.

Lists the child paths directly below a path, with the number of active
facts under each, followed by the facts stored at the path itself. With no
argument the top level (@) is listed.

Examples:
  meh browse
  meh ls @products/alpha
  meh ls @products --limit 20 --cursor @products/beta`

const browseShortDesc string = "Browse the path hierarchy"

func NewBrowseCmd() *cobra.Command {
	cmder := &browseCommander{}

	cmd := &cobra.Command{
		Use:     "browse [path]",
		Aliases: []string{"ls"},
		Short:   browseShortDesc,
		Long:    browseLongDesc,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := storage.RootAlias
			if len(args) == 1 {
				path = args[0]
			}
			return cmder.run(cmd, path)
		},
	}

	cmd.Flags().IntVar(&cmder.limit, "limit", storage.DefaultListLimit, "Maximum number of child paths")
	cmd.Flags().StringVar(&cmder.cursor, "cursor", "", "Continue after this child path")
	cmder.store.Register(cmd)

	return cmd
}

func (c *browseCommander) run(cmd *cobra.Command, path string) error {
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

	result, err := svc.Browse(ctx, path, c.limit, c.cursor)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	width := cliui.Width(out)

	if len(result.Children.Items) == 0 && len(result.Facts) == 0 {
		fmt.Fprintf(out, "Nothing under %s\n", result.Path)
		return nil
	}

	for _, child := range result.Children.Items {
		cliui.Fprintln(out,
			cliui.PathStyle.Render(child.Path+"/"), " ",
			cliui.DimStyle.Render(fmt.Sprintf("(%d)", child.FactCount)),
		)
	}
	if result.Children.HasMore {
		cliui.Fprintln(out, cliui.DimStyle.Render("... more, continue with --cursor "+result.Children.NextCursor))
	}

	if len(result.Facts) > 0 {
		if len(result.Children.Items) > 0 {
			fmt.Fprintln(out)
		}
		for _, f := range result.Facts {
			cliui.Fprintln(out, cliui.FactLine(f, width))
		}
	}

	return nil
}

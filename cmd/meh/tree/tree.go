// Package treecmder provides the tree command, a depth-limited view of the
// path hierarchy.
package treecmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/cmd/meh/mehenv"
	"github.com/papercomputeco/meh/pkg/cliui"
	"github.com/papercomputeco/meh/pkg/config"
	"github.com/papercomputeco/meh/pkg/service"
	"github.com/papercomputeco/meh/pkg/storage"
)

type treeCommander struct {
	depth    int
	count    bool
	dirsOnly bool

	store mehenv.StoreFlags
}

const treeLongDesc string = `Show the path hierarchy as a tree.

Walks every active fact at or below a path and draws the paths they live
under, --depth levels deep. Paths with more levels below the limit end in
"/...". With no argument the whole knowledge base is shown.

Examples:
  meh tree
  meh tree @products --depth 2 --count
  meh tree @team --dirs-only`

const treeShortDesc string = "Show the path hierarchy as a tree"

func NewTreeCmd() *cobra.Command {
	cmder := &treeCommander{}

	cmd := &cobra.Command{
		Use:   "tree [path]",
		Short: treeShortDesc,
		Long:  treeLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := storage.RootAlias
			if len(args) == 1 {
				path = args[0]
			}
			return cmder.run(cmd, path)
		},
	}

	cmd.Flags().IntVarP(&cmder.depth, "depth", "L", service.DefaultTreeDepth, "Maximum depth to show")
	cmd.Flags().BoolVar(&cmder.count, "count", false, "Show the number of facts under each path")
	cmd.Flags().BoolVar(&cmder.dirsOnly, "dirs-only", false, "Hide paths with nothing below them")
	cmder.store.Register(cmd)

	return cmd
}

func (c *treeCommander) run(cmd *cobra.Command, path string) error {
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

	tree, err := svc.Tree(ctx, path, c.depth)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if tree.Root.FactCount == 0 {
		fmt.Fprintf(out, "No facts found under %s\n", tree.Root.Path)
		return nil
	}

	cliui.Fprintln(out, cliui.TitleStyle.Render(tree.Root.Path))
	c.printChildren(out, tree.Root, "")

	fmt.Fprintln(out)
	cliui.Fprintln(out, cliui.DimStyle.Render(fmt.Sprintf("%d facts total", tree.Root.FactCount)))
	return nil
}

func (c *treeCommander) printChildren(out io.Writer, n *service.TreeNode, indent string) {
	children := n.Children
	if c.dirsOnly {
		children = nil
		for _, child := range n.Children {
			if child.HasChildren() {
				children = append(children, child)
			}
		}
	}

	for i, child := range children {
		branch, next := "├── ", "│   "
		if i == len(children)-1 {
			branch, next = "└── ", "    "
		}

		name := child.Name
		switch {
		case child.Truncated:
			name += "/..."
		case len(child.Children) > 0:
			name += "/"
		}

		line := indent + branch + cliui.PathStyle.Render(name)
		if c.count {
			line += " " + cliui.DimStyle.Render(fmt.Sprintf("(%d)", child.FactCount))
		}
		cliui.Fprintln(out, line)

		c.printChildren(out, child, indent+next)
	}
}

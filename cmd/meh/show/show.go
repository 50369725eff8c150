// Package showcmder provides the show command for displaying a single fact.
package showcmder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/cmd/meh/mehenv"
	"github.com/papercomputeco/meh/pkg/cliui"
	"github.com/papercomputeco/meh/pkg/config"
)

type showCommander struct {
	raw    bool
	asJSON bool

	store mehenv.StoreFlags
}

const showLongDesc string = `Show a fact by id, short id (meh-xxxxxxxx) or path.

A path shows the newest active fact stored at it. Content is rendered as
Markdown on a terminal; use --raw for the stored text or --json for the
full record.

Examples:
  meh show meh-01hq3k2a
  meh show @products/alpha/api/timeout
  meh show 01HQ3K2A --json`

const showShortDesc string = "Show a fact"

func NewShowCmd() *cobra.Command {
	cmder := &showCommander{}

	cmd := &cobra.Command{
		Use:   "show <id|path>",
		Short: showShortDesc,
		Long:  showLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print content without Markdown rendering")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the fact as JSON")
	cmder.store.Register(cmd)

	return cmd
}

func (c *showCommander) run(cmd *cobra.Command, ref string) error {
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

	f, err := svc.Get(ctx, ref)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if c.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(f)
	}

	fmt.Fprint(out, cliui.Render(out, cliui.FactHeader(f)))
	fmt.Fprintln(out)

	content := f.Content
	if !c.raw && cliui.ColorEnabled(out) {
		if rendered, err := cliui.RenderMarkdown(content); err == nil {
			content = rendered
		} else {
			env.Logger.Debug("markdown rendering failed", "error", err)
		}
	}
	fmt.Fprintln(out, content)

	return nil
}

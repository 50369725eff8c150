// Package searchcmder provides the search command for full-text search over
// facts.
package searchcmder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/cmd/meh/mehenv"
	"github.com/papercomputeco/meh/pkg/cliui"
	"github.com/papercomputeco/meh/pkg/config"
	"github.com/papercomputeco/meh/pkg/search"
)

type searchCommander struct {
	limit       uint
	tokenBudget uint
	path        string
	tags        []string
	minTrust    float64
	quiet       bool
	asJSON      bool

	store mehenv.StoreFlags
}

const searchLongDesc string = `Search facts by keyword.

Results are ranked by relevance and capped by --limit and --token-budget,
the estimated LLM tokens of all results together. Superseded, deprecated
and pending facts never appear.

Use --quiet to output only short ids, one per line, for piping into other
commands like meh show.

Examples:
  meh search timeout
  meh search "retry policy" --path @products/alpha --limit 5
  meh search deploy --tags ops --min-trust 0.7
  meh show $(meh search timeout --quiet --limit 1)`

const searchShortDesc string = "Search facts"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.path, "path", "p", "", "Only search at or below this path")
	cmd.Flags().StringSliceVar(&cmder.tags, "tags", nil, "Only return facts carrying all of these tags")
	cmd.Flags().Float64Var(&cmder.minTrust, "min-trust", 0, "Drop results scoring below this trust (0 to 1)")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only short ids, one per line (for piping)")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print results as JSON")
	config.AddUintFlag(cmd, config.Flags, config.FlagSearchLimit, &cmder.limit)
	config.AddUintFlag(cmd, config.Flags, config.FlagTokenBudget, &cmder.tokenBudget)
	cmder.store.Register(cmd)

	return cmd
}

func (c *searchCommander) run(cmd *cobra.Command, query string) error {
	ctx := context.Background()

	env, err := mehenv.Load(cmd, append(config.StoreFlags, config.FlagSearchLimit, config.FlagTokenBudget)...)
	if err != nil {
		return err
	}
	svc, err := env.Service(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	// Zero defers to the configured defaults, which already include the flags.
	resp, err := svc.Search(ctx, search.Query{
		Text:       query,
		PathPrefix: c.path,
		Tags:       c.tags,
		MinTrust:   c.minTrust,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case c.asJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)

	case c.quiet:
		for _, r := range resp.Results {
			fmt.Fprintln(out, r.Fact.MehID())
		}
		return nil
	}

	if resp.Count == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	width := cliui.Width(out)
	cliui.Fprintln(out, cliui.TitleStyle.Render("Results for: "), fmt.Sprintf("%q", resp.Query))
	fmt.Fprintln(out)
	for i, r := range resp.Results {
		cliui.Fprintln(out, cliui.StepStyle.Render(fmt.Sprintf("%2d.", i+1)), " ", cliui.FactLine(r.Fact, width-4))
		if summary := cliui.OneLine(r.Fact.SummaryOrContent()); summary != "" {
			cliui.Fprintln(out, "    ", cliui.DimStyle.Render(cliui.Truncate(summary, width-4)))
		}
	}

	footer := fmt.Sprintf("%d results, ~%d tokens", resp.Count, resp.TotalTokens)
	if resp.Truncated {
		footer += " (cut by token budget)"
	}
	fmt.Fprintln(out)
	cliui.Fprintln(out, cliui.DimStyle.Render(footer))
	return nil
}

// Package gccmder provides the gc command for deleting expired facts.
package gccmder

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/cmd/meh/mehenv"
	"github.com/papercomputeco/meh/pkg/cliui"
	"github.com/papercomputeco/meh/pkg/config"
	"github.com/papercomputeco/meh/pkg/fact"
	"github.com/papercomputeco/meh/pkg/storage"
)

type gcCommander struct {
	force         bool
	yes           bool
	retentionDays uint

	store mehenv.StoreFlags
}

const gcLongDesc string = `Garbage collect superseded and deprecated facts.

Facts that were superseded or deprecated more than --retention-days ago are
deleted permanently. A fact is kept while any active fact still supersedes
or extends it. Without --force this is a dry run that only lists what would
be deleted. On a terminal --force asks for confirmation unless --yes is
given.

Examples:
  meh gc
  meh gc --retention-days 7
  meh gc --force --yes`

const gcShortDesc string = "Garbage collect expired facts"

func NewGCCmd() *cobra.Command {
	cmder := &gcCommander{}

	cmd := &cobra.Command{
		Use:   "gc",
		Short: gcShortDesc,
		Long:  gcLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVarP(&cmder.force, "force", "f", false, "Delete facts instead of listing them")
	cmd.Flags().BoolVarP(&cmder.yes, "yes", "y", false, "Skip the confirmation prompt")
	config.AddUintFlag(cmd, config.Flags, config.FlagRetentionDays, &cmder.retentionDays)
	cmder.store.Register(cmd)

	return cmd
}

func (c *gcCommander) run(cmd *cobra.Command) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	env, err := mehenv.Load(cmd, append(config.StoreFlags, config.FlagRetentionDays)...)
	if err != nil {
		return err
	}
	svc, err := env.Service(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	preview, err := svc.GC(ctx, -1, true)
	if err != nil {
		return err
	}
	if len(preview.Candidates) == 0 {
		fmt.Fprintln(out, "Nothing to collect.")
		return nil
	}

	printCandidates(cmd, preview)

	if !c.force {
		fmt.Fprintln(out)
		cliui.Fprintln(out, cliui.DimStyle.Render("Dry run. Re-run with --force to delete."))
		return nil
	}

	if !c.yes && cliui.IsTerminal(cmd.InOrStdin()) {
		ok, err := cliui.Confirm(cmd.InOrStdin(), out, fmt.Sprintf("Delete %d facts?", len(preview.Candidates)))
		if err != nil {
			return errors.Wrap(err, "reading confirmation")
		}
		if !ok {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	var result *storage.GCResult
	err = cliui.Step(out, "Collecting facts", func() error {
		var err error
		result, err = svc.GC(ctx, -1, false)
		return err
	})
	if err != nil {
		return err
	}

	cliui.Fprintln(out, cliui.SuccessMark, fmt.Sprintf(" Deleted %d facts", result.DeletedCount))
	return nil
}

func printCandidates(cmd *cobra.Command, result *storage.GCResult) {
	out := cmd.OutOrStdout()

	cliui.Fprintln(out, cliui.TitleStyle.Render(fmt.Sprintf(
		"%d facts last changed before %s:",
		len(result.Candidates), result.Cutoff.Local().Format("2006-01-02"),
	)))
	for _, cand := range result.Candidates {
		cliui.Fprintln(out,
			"  ", cliui.IDStyle.Render(fact.MehIDPrefix+fact.ShortID(cand.ID)), "  ",
			cliui.Status(string(cand.Status)), "  ",
			cliui.PathStyle.Render(cand.Path), "  ",
			cliui.OneLine(cand.Title),
		)
	}
}

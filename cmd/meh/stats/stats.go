// Package statscmder provides the stats command.
package statscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/cmd/meh/mehenv"
	"github.com/papercomputeco/meh/pkg/cliui"
	"github.com/papercomputeco/meh/pkg/config"
	"github.com/papercomputeco/meh/pkg/fact"
)

type statsCommander struct {
	store mehenv.StoreFlags
}

const statsLongDesc string = `Show fact counts by status.

Examples:
  meh stats`

const statsShortDesc string = "Show fact counts"

func NewStatsCmd() *cobra.Command {
	cmder := &statsCommander{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Long:  statsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmder.store.Register(cmd)

	return cmd
}

func (c *statsCommander) run(cmd *cobra.Command) error {
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

	stats, err := svc.Stats(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rows := []struct {
		status fact.Status
		n      int
	}{
		{fact.StatusActive, stats.Active},
		{fact.StatusPendingReview, stats.PendingReview},
		{fact.StatusSuperseded, stats.Superseded},
		{fact.StatusDeprecated, stats.Deprecated},
		{fact.StatusArchived, stats.Archived},
	}

	for _, r := range rows {
		label := fmt.Sprintf("%-15s", r.status)
		cliui.Fprintln(out, cliui.Status(string(r.status)), label[len(r.status):], fmt.Sprintf("%6d", r.n))
	}
	cliui.Fprintln(out, cliui.TitleStyle.Render(fmt.Sprintf("%-15s", "total")), fmt.Sprintf("%6d", stats.Total))
	return nil
}

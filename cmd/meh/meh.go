// Package mehcmder
package mehcmder

import (
	"github.com/spf13/cobra"

	addcmder "github.com/papercomputeco/meh/cmd/meh/add"
	browsecmder "github.com/papercomputeco/meh/cmd/meh/browse"
	configcmder "github.com/papercomputeco/meh/cmd/meh/config"
	correctcmder "github.com/papercomputeco/meh/cmd/meh/correct"
	deprecatecmder "github.com/papercomputeco/meh/cmd/meh/deprecate"
	extendcmder "github.com/papercomputeco/meh/cmd/meh/extend"
	gccmder "github.com/papercomputeco/meh/cmd/meh/gc"
	historycmder "github.com/papercomputeco/meh/cmd/meh/history"
	initcmder "github.com/papercomputeco/meh/cmd/meh/init"
	pendingcmder "github.com/papercomputeco/meh/cmd/meh/pending"
	searchcmder "github.com/papercomputeco/meh/cmd/meh/search"
	servecmder "github.com/papercomputeco/meh/cmd/meh/serve"
	showcmder "github.com/papercomputeco/meh/cmd/meh/show"
	statscmder "github.com/papercomputeco/meh/cmd/meh/stats"
	treecmder "github.com/papercomputeco/meh/cmd/meh/tree"
	versioncmder "github.com/papercomputeco/meh/cmd/version"
)

const mehLongDesc string = `meh is a shared knowledge base for people and their agents.

Facts are short Markdown notes filed under paths like @products/alpha/api.
Agents search and write them through MCP tools; people review them here.
Facts are never edited in place: corrections supersede them and history
keeps every version.

Get started:
  meh init                     Create a .meh/ directory here
  meh add @team/oncall "..."   Add a fact
  meh search oncall            Search facts
  meh serve                    Run the REST API and MCP server`

const mehShortDesc string = "meh - a fact store for agents"

func NewMehCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "meh",
		Short:         mehShortDesc,
		Long:          mehLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Use this directory instead of ./.meh or ~/.meh")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(addcmder.NewAddCmd())
	cmd.AddCommand(showcmder.NewShowCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(browsecmder.NewBrowseCmd())
	cmd.AddCommand(treecmder.NewTreeCmd())
	cmd.AddCommand(correctcmder.NewCorrectCmd())
	cmd.AddCommand(extendcmder.NewExtendCmd())
	cmd.AddCommand(deprecatecmder.NewDeprecateCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(pendingcmder.NewPendingCmd())
	cmd.AddCommand(gccmder.NewGCCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

// Package initcmder provides the init command for initializing a local .meh
// directory in the current working directory.
package initcmder

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/cmd/meh/sqlitepath"
	"github.com/papercomputeco/meh/pkg/cliui"
	"github.com/papercomputeco/meh/pkg/config"
	"github.com/papercomputeco/meh/pkg/dotdir"
	"github.com/papercomputeco/meh/pkg/storage/sqlite"
)

const initLongDesc string = `Initialize a new .meh/ directory in the current working directory.

Creates a local .meh/ directory with a default config.toml and an empty
SQLite fact store. A local .meh/ takes precedence over ~/.meh/, which keeps
a separate knowledge base per project.

Examples:
  meh init`

const initShortDesc string = "Initialize a local .meh/ directory"

func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd)
		},
	}

	return cmd
}

func runInit(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	cwd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "getting current directory")
	}

	dir, existed, err := dotdir.NewManager().Init(cwd)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfger.GetTarget()); errors.Is(err, os.ErrNotExist) {
		if err := cfger.SaveConfig(config.NewDefaultConfig()); err != nil {
			return err
		}
	}

	dbPath, err := sqlitepath.ResolveSQLitePath("", dir)
	if err != nil {
		return err
	}
	err = cliui.Step(out, "Preparing fact store", func() error {
		driver, err := sqlite.NewDriver(context.Background(), dbPath)
		if err != nil {
			return err
		}
		return driver.Close()
	})
	if err != nil {
		return err
	}

	if existed {
		cliui.Fprintln(out, "Already initialized: ", cliui.PathStyle.Render(dir))
		return nil
	}
	cliui.Fprintln(out, "Initialized .meh directory: ", cliui.PathStyle.Render(dir))
	return nil
}

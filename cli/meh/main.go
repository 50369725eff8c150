package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"

	mehcmder "github.com/papercomputeco/meh/cmd/meh"
	"github.com/papercomputeco/meh/pkg/cliui"
)

func main() {
	cmd := mehcmder.NewMehCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cliui.Render(os.Stderr, cliui.FailMark+" "+err.Error()))
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintln(os.Stderr, cliui.Render(os.Stderr, cliui.DimStyle.Render("hint: "+hint)))
		}
		os.Exit(1)
	}
}

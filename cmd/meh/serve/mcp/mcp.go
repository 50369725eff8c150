// Package mcpcmder provides the serve mcp command for running the MCP tool
// server over stdio.
package mcpcmder

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/api/mcp"
	"github.com/papercomputeco/meh/cmd/meh/mehenv"
	"github.com/papercomputeco/meh/pkg/config"
	"github.com/papercomputeco/meh/pkg/service"
)

type mcpCommander struct {
	policy string

	store mehenv.StoreFlags
}

const mcpLongDesc string = `Run the MCP tool server over stdio.

For agents that launch meh as a subprocess. Requests are read from stdin
and responses written to stdout; logs go to stderr.

Example agent configuration:
  {"command": "meh", "args": ["serve", "mcp"]}`

const mcpShortDesc string = "Run the MCP tool server over stdio"

func NewMCPCmd() *cobra.Command {
	cmder := &mcpCommander{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: mcpShortDesc,
		Long:  mcpLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagPolicy, &cmder.policy)
	cmder.store.Register(cmd)

	return cmd
}

func (c *mcpCommander) run(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := mehenv.Load(cmd, append(config.StoreFlags, config.FlagPolicy)...)
	if err != nil {
		return err
	}

	svc, err := env.Service(ctx, service.WithActor(mehenv.AgentActor))
	if err != nil {
		return err
	}
	defer svc.Close()

	env.AutoGC(ctx, svc)

	server, err := mcp.NewServer(mcp.Config{
		Service: svc,
		Logger:  env.Logger,
	})
	if err != nil {
		return errors.Wrap(err, "creating MCP server")
	}

	env.Logger.Debug("serving MCP over stdio")
	if err := server.Run(ctx, &sdk.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Package servecmder provides the serve command for running the REST API
// with the MCP tool server mounted on it.
package servecmder

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/api"
	"github.com/papercomputeco/meh/api/mcp"
	"github.com/papercomputeco/meh/cmd/meh/mehenv"
	mcpcmder "github.com/papercomputeco/meh/cmd/meh/serve/mcp"
	"github.com/papercomputeco/meh/pkg/config"
	"github.com/papercomputeco/meh/pkg/logger"
	"github.com/papercomputeco/meh/pkg/service"
)

type ServeCommander struct {
	listen       string
	policy       string
	kafkaBrokers string
	kafkaTopic   string
	logFile      string
	logLevel     string

	store mehenv.StoreFlags
}

const serveLongDesc string = `Run the meh server.

Serves the REST API under /v1 and the MCP tool server at /mcp on the same
address. Writes arriving here are attributed to an AI agent and follow the
write policy: allow stores them, ask queues them for review (see meh
pending) and deny refuses them.

With --kafka-brokers, or events.provider set to kafka, every change to a
fact is published as a JSON event.

Use subcommands to run individual services:
  meh serve           Run the REST API and MCP over HTTP
  meh serve mcp       Run the MCP tool server over stdio`

const serveShortDesc string = "Run the meh server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagPolicy, &cmder.policy)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.kafkaTopic)
	cmder.store.Register(cmd)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().StringVar(&cmder.logLevel, "log-level", "info", "Lowest level written to --log-file (debug, info, warn, error)")

	cmd.AddCommand(mcpcmder.NewMCPCmd())

	return cmd
}

func (c *ServeCommander) run(cmd *cobra.Command) error {
	ctx := context.Background()

	env, err := mehenv.Load(cmd, append(config.StoreFlags,
		config.FlagListen,
		config.FlagPolicy,
		config.FlagKafkaBrokers,
		config.FlagKafkaTopic,
	)...)
	if err != nil {
		return err
	}
	if c.logFile != "" {
		level, err := logger.ParseLevel(c.logLevel)
		if err != nil {
			return err
		}
		closeLog, err := env.TeeLog(c.logFile, level)
		if err != nil {
			return err
		}
		defer func() { _ = closeLog() }()
	}
	if cmd.Flags().Changed(config.Flags[config.FlagKafkaBrokers].Name) {
		env.Config.Events.Provider = config.EventsKafka
	}

	svc, err := env.Service(ctx, service.WithActor(mehenv.AgentActor))
	if err != nil {
		return err
	}
	defer svc.Close()

	env.AutoGC(ctx, svc)

	mcpServer, err := mcp.NewServer(mcp.Config{
		Service: svc,
		Logger:  env.Logger,
	})
	if err != nil {
		return errors.Wrap(err, "creating MCP server")
	}

	server := api.NewServer(api.Config{
		ListenAddr: env.Config.API.Listen,
		MCPHandler: mcpServer.Handler(),
	}, svc, env.Logger)

	env.Logger.Info("starting meh server",
		"listen", env.Config.API.Listen,
		"policy", env.Config.Write.Policy,
		"driver", env.Config.Storage.Driver,
		"events", env.Config.Events.Provider,
	)

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- errors.Wrap(err, "API server error")
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		env.Logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}

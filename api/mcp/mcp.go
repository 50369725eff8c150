// Package mcp provides an MCP (Model Context Protocol) server exposing the
// fact store to agents as tools.
package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/meh/pkg/service"
	"github.com/papercomputeco/meh/pkg/utils"
)

const instructions = `meh is a shared knowledge base of short facts addressed by paths like @service/topic.
Search or browse before answering from memory. Fix wrong facts with meh_correct instead of adding duplicates.`

type Config struct {
	// Service backs every tool.
	Service *service.Service

	// Noop for an MCP server with no tools
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the fact tools registered.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "meh",
			Version: utils.Version,
		},
		&mcp.ServerOptions{Instructions: instructions},
	)
	s.mcpServer = mcpServer

	// Stateless streamable HTTP handler for mounting on the REST server
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	if c.Noop {
		return s, nil
	}

	if c.Service == nil {
		return nil, errors.New("service is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	s.registerTools()
	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves a single session over t until the client disconnects or ctx
// is cancelled. Used with mcp.StdioTransport for agents that spawn meh.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	return s.mcpServer.Run(ctx, t)
}

// Connect starts a session over t without blocking.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

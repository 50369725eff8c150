package api

import (
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/meh/pkg/service"
)

// MCPPath is where the MCP handler is mounted.
const MCPPath = "/mcp"

// Server is the API server for reading and writing meh facts.
type Server struct {
	config Config
	svc    *service.Service
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
// The service is injected so the CLI and the MCP server share one store.
func NewServer(config Config, svc *service.Service, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})

	s := &Server{
		config: config,
		svc:    svc,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Get("/facts", s.handleListFacts)
	v1.Post("/facts", s.handleAddFact)
	v1.Get("/facts/:id", s.handleGetFact)
	v1.Get("/facts/:id/history", s.handleGetHistory)
	v1.Post("/facts/:id/correct", s.handleCorrectFact)
	v1.Post("/facts/:id/extend", s.handleExtendFact)
	v1.Post("/facts/:id/deprecate", s.handleDeprecateFact)
	v1.Get("/search", s.handleSearch)
	v1.Get("/browse", s.handleBrowse)
	v1.Get("/pending", s.handleListPending)
	v1.Post("/pending/:id/approve", s.handleApprove)
	v1.Post("/pending/:id/reject", s.handleReject)
	v1.Get("/stats", s.handleStats)
	v1.Post("/gc", s.handleGC)

	if config.MCPHandler != nil {
		mcp := adaptor.HTTPHandler(config.MCPHandler)
		app.All(MCPPath, mcp)
		app.All(MCPPath+"/*", mcp)
	}

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"mcp", s.config.MCPHandler != nil,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

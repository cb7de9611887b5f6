// Package mcp provides the Model Context Protocol (MCP) server implementation.
//
// This package exposes debugging capabilities through MCP tools that can be
// used by AI assistants and other MCP clients:
//
// Session management (always available):
//   - debugger_start: Launch a new debug session
//   - debugger_disconnect: Disconnect from a session
//   - debugger_list_sessions: List active sessions
//   - debugger_session_state: Read a session's lifecycle state
//
// Inspection (always available):
//   - debugger_stack_trace, debugger_threads, debugger_scopes, debugger_variables
//   - debugger_evaluate
//
// Control (full mode only):
//   - debugger_set_breakpoint, debugger_list_breakpoints, debugger_set_exception_breakpoints
//   - debugger_continue, debugger_step_over, debugger_step_into, debugger_step_out
//   - debugger_pause, debugger_wait_for_stop
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/debugbridge/dapmcp/internal/adapters"
	"github.com/debugbridge/dapmcp/internal/config"
	"github.com/debugbridge/dapmcp/internal/dap"
)

// Server wraps the MCP server with debugging capabilities.
type Server struct {
	mcpServer      *server.MCPServer
	sessionManager *dap.SessionManager
	adapterReg     *adapters.Registry
	config         *config.Config
}

// NewServer creates a new debug bridge MCP server.
func NewServer(cfg *config.Config) *Server {
	mcpServer := server.NewMCPServer(
		"debugbridge",
		"0.1.0",
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	sessionManager := dap.NewSessionManager(cfg.MaxSessions, cfg.SessionTimeout)
	adapterReg := adapters.NewRegistry(cfg)

	s := &Server{
		mcpServer:      mcpServer,
		sessionManager: sessionManager,
		adapterReg:     adapterReg,
		config:         cfg,
	}

	s.registerTools()

	return s
}

// ServeStdio starts the server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Close shuts down the server.
func (s *Server) Close() {
	s.sessionManager.Close()
}

// GetSessionManager returns the session manager.
func (s *Server) GetSessionManager() *dap.SessionManager {
	return s.sessionManager
}

// GetAdapterRegistry returns the adapter registry.
func (s *Server) GetAdapterRegistry() *adapters.Registry {
	return s.adapterReg
}

// GetConfig returns the server configuration.
func (s *Server) GetConfig() *config.Config {
	return s.config
}

func contextFromHandler() context.Context {
	return context.Background()
}

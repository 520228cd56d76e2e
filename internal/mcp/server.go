// Package mcp exposes the capture lifecycle to agent clients over the
// Model Context Protocol. The tool surface mirrors the admin HTTP API:
// ingest, list, approve, reject, publish-all.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tendfield/garden/internal/config"
	"github.com/tendfield/garden/internal/store"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"capture_ingest": {
		def:     ingestToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleIngest },
	},
	"capture_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"capture_approve": {
		def:     approveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleApprove },
	},
	"capture_reject": {
		def:     rejectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReject },
	},
	"capture_publish_all": {
		def:     publishAllToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePublishAll },
	},
}

// AllToolNames returns a list of all registered tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// NewServer creates an MCP server with the capture tools registered.
func NewServer(st *store.Store, pub Publisher, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"garden",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(st, pub, cfg)
	for _, entry := range toolRegistry {
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(st *store.Store, pub Publisher, cfg *config.Config, version string) error {
	return server.ServeStdio(NewServer(st, pub, cfg, version))
}

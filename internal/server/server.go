// Package server wires the MCP surface of mcp-docsrs.
//
// This is the composition root for the protocol layer: it registers the
// documentation lookup tool and the cache introspection tools/resources
// against a Fetcher, and serves them over stdio. No cache or network
// logic lives here.
package server

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vexxvakan/mcp-docsrs/internal/docsrs"
	"github.com/vexxvakan/mcp-docsrs/internal/logging"
)

const serverName = "mcp-docsrs"

// Server exposes crate documentation lookup over MCP.
type Server struct {
	mcp     *server.MCPServer
	fetcher *docsrs.Fetcher
	logger  logging.Logger
}

// New builds the MCP server and registers all tools and resources.
func New(fetcher *docsrs.Fetcher, logger logging.Logger, version string) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	s := &Server{
		fetcher: fetcher,
		logger:  logger,
	}

	m := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithInstructions(
			"Look up rustdoc JSON documentation for published Rust crates via docs.rs. "+
				"Payloads are cached locally; cache contents can be inspected with the "+
				"cache tools and resources."),
	)

	m.AddTool(lookupCrateDocsTool(), s.handleLookupCrateDocs)
	m.AddTool(queryCacheTool(), s.handleQueryCache)
	m.AddTool(clearCacheTool(), s.handleClearCache)

	m.AddResource(mcp.NewResource(
		"cache://stats",
		"Cache statistics",
		mcp.WithResourceDescription("Entry count, total payload bytes and oldest entry timestamp"),
		mcp.WithMIMEType("application/json"),
	), s.handleStatsResource)

	m.AddResource(mcp.NewResource(
		"cache://entries",
		"Cache entries",
		mcp.WithResourceDescription("Cached entries newest-first; supports ?limit=N&offset=M"),
		mcp.WithMIMEType("application/json"),
	), s.handleEntriesResource)

	s.mcp = m
	return s
}

// ServeStdio blocks serving MCP over stdin/stdout until the stream closes.
func (s *Server) ServeStdio() error {
	s.logger.Info("serving MCP over stdio", "server", serverName)
	return server.ServeStdio(s.mcp)
}

package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mike-a-ellis/navindex/internal/index"
	"github.com/mike-a-ellis/navindex/internal/search"
)

// Index is the part of search.Facade the tools call.
type Index interface {
	Search(ctx context.Context, query string, limit int, filter string) *search.Response
	IndexCodeEntries(ctx context.Context) (*index.BuildResult, error)
	IndexWSPEntries(ctx context.Context, paths ...string) (*index.BuildResult, error)
	Status(ctx context.Context) (*search.Status, error)
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
	index  Index
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(idx Index, version string) *Server {
	if version == "" {
		version = "v0.1.0"
	}
	impl := &mcp.Implementation{
		Name:    "navindex",
		Version: version,
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_index",
		Description: "Find source locations and protocol/documentation entries for a natural-language need. Code hits include a short source preview.",
	}, makeSearchHandler(idx))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_code",
		Description: "Rebuild the code navigation collection from the configured need-to-location file. Replaces the previous collection.",
	}, makeIndexCodeHandler(idx))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_docs",
		Description: "Rebuild the documentation collection from markdown files under the given or configured directories. Replaces the previous collection.",
	}, makeIndexDocsHandler(idx))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the number of entries in each collection and in the protocol summary cache.",
	}, makeStatusHandler(idx))

	return &Server{
		server: server,
		index:  idx,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

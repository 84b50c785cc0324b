// Package mcpserver exposes the redundancy analysis as Model Context
// Protocol tools over stdio.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/sift/internal/service/analysis"
)

// Server wraps the MCP server and registers the sift tools.
type Server struct {
	server   *mcp.Server
	analysis *analysis.Service
}

// NewServer creates a new MCP server. A nil svc uses the default
// configuration.
func NewServer(version string, svc *analysis.Service) *Server {
	if version == "" {
		version = "dev"
	}
	if svc == nil {
		svc = analysis.New()
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "sift",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, analysis: svc}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_redundancy",
		Description: describeRedundancy(),
	}, s.handleAnalyzeRedundancy)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_unused_files",
		Description: describeUnusedFiles(),
	}, s.handleFindUnusedFiles)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_duplicates",
		Description: describeDuplicates(),
	}, s.handleFindDuplicates)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "dependency_graph",
		Description: describeDependencyGraph(),
	}, s.handleDependencyGraph)

	// Removal is preview-only over MCP.
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "plan_removal",
		Description: describePlanRemoval(),
	}, s.handlePlanRemoval)
}

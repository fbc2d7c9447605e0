// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/tqi/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the TQI MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"TQI Quality Server",
		version,
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	s.AddTool(mcp.NewTool("evaluate_project",
		mcp.WithDescription("Run the configured analyzers on a project and score it against a calibrated quality model."),
		mcp.WithString("project_path", mcp.Description("Path to the project (defaults to the configured project).")),
		mcp.WithString("model_path", mcp.Description("Path to the calibrated model (defaults to the configured model).")),
		mcp.WithNumber("limit", mcp.Description("Number of weakest measures to include.")),
	), h.handleEvaluateProject)

	s.AddTool(mcp.NewTool("describe_model",
		mcp.WithDescription("Describe the nodes, thresholds and weights of a quality model or model description."),
		mcp.WithString("model_path", mcp.Description("Path to the model document (defaults to the configured model, then description).")),
	), h.handleDescribeModel)

	return s
}

// StartMCPServer starts the TQI MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager, version string) error {
	s := NewMCPServer(baseCfg, mgr, version)
	return server.ServeStdio(s)
}

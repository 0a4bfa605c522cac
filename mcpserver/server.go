// Package mcpserver exposes the shared toolkit over the Model Context
// Protocol so external agents can call the tools via SSE.
package mcpserver

import (
	"context"
	"strconv"

	"github.com/kataras/golog"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/GAIK-project/ai-agents-go/toolkit"
)

// ServerName identifies this server to MCP clients.
const ServerName = "Tools"

// New builds the MCP server with the calculator tool registered.
func New(version string) *server.MCPServer {
	s := server.NewMCPServer(ServerName, version,
		server.WithToolCapabilities(false),
	)

	calculate := mcp.NewTool("calculate",
		mcp.WithDescription("Simple calculator: add/sub/mul/div"),
		mcp.WithString("op",
			mcp.Required(),
			mcp.Description("The operation to perform"),
			mcp.Enum("add", "sub", "mul", "div"),
		),
		mcp.WithNumber("a",
			mcp.Required(),
			mcp.Description("First operand"),
		),
		mcp.WithNumber("b",
			mcp.Required(),
			mcp.Description("Second operand"),
		),
	)
	s.AddTool(calculate, handleCalculate)

	return s
}

func handleCalculate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	op, err := req.RequireString("op")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := req.RequireFloat("a")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := req.RequireFloat("b")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := toolkit.Calculate(op, a, b)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strconv.FormatFloat(result, 'f', -1, 64)), nil
}

// ServeSSE runs the server over SSE on the given address, blocking
// until it fails or is shut down.
func ServeSSE(s *server.MCPServer, addr string) error {
	sse := server.NewSSEServer(s)
	golog.Infof("mcpserver: SSE endpoint listening on %s/sse", addr)
	return sse.Start(addr)
}

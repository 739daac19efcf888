package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mkuzmin/askdoc/internal/core/ports"
)

// Server exposes the question answering pipeline as an MCP tool over stdio,
// so agent runtimes can query the document collection directly.
type Server struct {
	mcpServer *server.MCPServer
}

func NewServer(queryUC ports.QueryService, version string) *Server {
	s := server.NewMCPServer(
		"askdoc",
		version,
		server.WithToolCapabilities(false),
	)

	askTool := mcp.NewTool("ask_documents",
		mcp.WithDescription("Answer a question using the indexed document collection. Returns a grounded answer with source citations."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer from the indexed documents."),
		),
	)
	s.AddTool(askTool, askHandler(queryUC))

	return &Server{mcpServer: s}
}

// ServeStdio blocks until stdin closes or the context is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	return server.ServeStdio(s.mcpServer, server.WithStdioContextFunc(
		func(context.Context) context.Context { return ctx },
	))
}

func askHandler(queryUC ports.QueryService) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		result, err := queryUC.Answer(ctx, question)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("answer question: %v", err)), nil
		}

		payload, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("marshal answer: %w", err)
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}

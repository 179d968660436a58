package bridge

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/brwse/bridge/internal/common"
	"github.com/brwse/bridge/internal/openapi"
)

// ToolProvider is the surface a bridge exposes to the MCP server layer.
// HTTPBridge, PostgresBridge and ProxyBridge all satisfy it.
type ToolProvider interface {
	Tools(ctx context.Context, cursor string, limit int) ([]mcp.Tool, string, error)
	Execute(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// NewServer creates an MCP server with tool capabilities and the standard
// middleware chain.
func NewServer(name, version string, middleware ...server.ToolHandlerMiddleware) *server.MCPServer {
	opts := []server.ServerOption{
		server.WithToolCapabilities(true),
	}
	for _, mw := range middleware {
		opts = append(opts, server.WithToolHandlerMiddleware(mw))
	}
	return server.NewMCPServer(name, version, opts...)
}

// RegisterTools pages through the provider's catalog and registers every
// tool on the server. Each handler dispatches back to the provider by the
// requested tool name.
func RegisterTools(ctx context.Context, s *server.MCPServer, provider ToolProvider, logger *common.Logger) (int, error) {
	handler := func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return provider.Execute(ctx, r.Params.Name, r.GetArguments())
	}

	total := 0
	cursor := ""
	for {
		tools, next, err := provider.Tools(ctx, cursor, openapi.DefaultPageLimit)
		if err != nil {
			return total, fmt.Errorf("failed to list tools: %w", err)
		}
		for _, tool := range tools {
			s.AddTool(tool, handler)
			logger.Debug().Str("tool", tool.Name).Msg("registered tool")
			total++
		}
		if next == "" {
			break
		}
		cursor = next
	}
	return total, nil
}

// Serve runs the server on the stdio transport when stdio is true,
// otherwise on a stateless streamable HTTP listener. Blocks until the
// transport shuts down.
func Serve(s *server.MCPServer, listen string, stdio bool, logger *common.Logger) error {
	if stdio {
		logger.Info().Msg("serving on stdio")
		return server.ServeStdio(s)
	}
	logger.Info().Str("listen", listen).Msg("serving streamable HTTP")
	httpServer := server.NewStreamableHTTPServer(s, server.WithStateLess(true))
	return httpServer.Start(listen)
}

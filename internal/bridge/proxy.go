package bridge

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/brwse/bridge/internal/common"
)

// ProxyBridge forwards tool listing and calls to an upstream MCP server.
// It lets an upstream server be fronted by this process's middleware
// chain (logging, static headers, registry lifecycle).
type ProxyBridge struct {
	client *client.Client
	name   string
	logger *common.Logger
}

// NewProxyBridge creates a bridge to the upstream streamable HTTP MCP
// server at upstreamURL. Call Connect before use.
func NewProxyBridge(upstreamURL, name string, logger *common.Logger) (*ProxyBridge, error) {
	c, err := client.NewStreamableHttpClient(upstreamURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream client: %w", err)
	}
	if logger == nil {
		logger = common.NewDefaultLogger()
	}
	return &ProxyBridge{client: c, name: name, logger: logger}, nil
}

// Connect starts the transport and runs the initialize handshake.
func (p *ProxyBridge) Connect(ctx context.Context, version string) error {
	if err := p.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start upstream transport: %w", err)
	}
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: p.name, Version: version}
	res, err := p.client.Initialize(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to initialize upstream session: %w", err)
	}
	p.logger.Info().Str("server", res.ServerInfo.Name).Str("version", res.ServerInfo.Version).Msg("connected to upstream")
	return nil
}

// Tools forwards one page of the upstream tool listing.
func (p *ProxyBridge) Tools(ctx context.Context, cursor string, limit int) ([]mcp.Tool, string, error) {
	req := mcp.ListToolsRequest{}
	req.Params.Cursor = mcp.Cursor(cursor)
	res, err := p.client.ListTools(ctx, req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list upstream tools: %w", err)
	}
	return res.Tools, string(res.NextCursor), nil
}

// Execute forwards a tool call upstream. Transport failures come back as
// error-flagged results, matching the HTTP bridge's treatment of backend
// failures.
func (p *ProxyBridge) Execute(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := p.client.CallTool(ctx, req)
	if err != nil {
		p.logger.Warn().Str("tool", name).Str("error", err.Error()).Msg("upstream call failed")
		return errorResult(fmt.Sprintf("upstream request failed: %v", err)), nil
	}
	return result, nil
}

// Close shuts down the upstream session.
func (p *ProxyBridge) Close() error {
	return p.client.Close()
}

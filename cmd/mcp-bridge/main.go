// Command mcp-bridge fronts an upstream MCP server, re-exposing its
// tools through this process's middleware and registry lifecycle.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/brwse/bridge/internal/bridge"
	"github.com/brwse/bridge/internal/common"
	"github.com/brwse/bridge/internal/config"
	"github.com/brwse/bridge/internal/registry"
)

func main() {
	configFile := flag.String("config", "bridge.toml", "Path to config file")
	upstreamURL := flag.String("mcp-url", "", "Upstream MCP server URL")
	listen := flag.String("listen", "", "Listen address for the streamable HTTP transport")
	stdio := flag.Bool("stdio", false, "Use stdio transport")
	flag.Parse()

	cfg, err := config.LoadFromFile(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	config.ApplyFlagOverrides(cfg, *listen, "", "")
	if *upstreamURL != "" {
		cfg.Upstream.URL = *upstreamURL
	}
	if *stdio {
		cfg.Server.Stdio = true
	}

	common.LoadVersionFromFile()
	logger := common.NewLoggerFromConfig(cfg.Logging)
	logger.Info().Str("version", common.GetFullVersion()).Msg("starting mcp-bridge")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	proxy, err := bridge.NewProxyBridge(cfg.Upstream.URL, cfg.Server.Name, logger)
	if err != nil {
		logger.Error().Str("error", err.Error()).Msg("failed to create proxy")
		os.Exit(1)
	}
	defer proxy.Close()

	if err := proxy.Connect(ctx, common.GetVersion()); err != nil {
		logger.Error().Str("url", cfg.Upstream.URL).Str("error", err.Error()).Msg("failed to connect upstream")
		os.Exit(1)
	}

	if _, err := registry.Setup(ctx, cfg.Registry, logger); err != nil {
		logger.Error().Str("error", err.Error()).Msg("registry setup failed")
		os.Exit(1)
	}

	srv := bridge.NewServer(cfg.Server.Name, common.GetVersion(), bridge.LoggingMiddleware(logger))
	count, err := bridge.RegisterTools(ctx, srv, proxy, logger)
	if err != nil {
		logger.Error().Str("error", err.Error()).Msg("failed to register upstream tools")
		os.Exit(1)
	}
	logger.Info().Int("tools", count).Str("upstream", cfg.Upstream.URL).Msg("bridge ready")

	if err := bridge.Serve(srv, cfg.Server.Listen, cfg.Server.Stdio, logger); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

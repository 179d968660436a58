// Command http-bridge exposes the operations of an OpenAPI document as
// MCP tools backed by an HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brwse/bridge/internal/bridge"
	"github.com/brwse/bridge/internal/common"
	"github.com/brwse/bridge/internal/config"
	"github.com/brwse/bridge/internal/openapi"
	"github.com/brwse/bridge/internal/registry"
)

func main() {
	configFile := flag.String("config", "bridge.toml", "Path to config file")
	specPath := flag.String("openapi-spec", "", "Path to the OpenAPI document (JSON or YAML)")
	baseURL := flag.String("base-url", "", "Backend base URL (defaults to the document's first server)")
	listen := flag.String("listen", "", "Listen address for the streamable HTTP transport")
	stdio := flag.Bool("stdio", false, "Use stdio transport")
	flag.Parse()

	cfg, err := config.LoadFromFile(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	config.ApplyFlagOverrides(cfg, *listen, *specPath, *baseURL)
	if *stdio {
		cfg.Server.Stdio = true
	}

	common.LoadVersionFromFile()
	logger := common.NewLoggerFromConfig(cfg.Logging)
	logger.Info().Str("version", common.GetFullVersion()).Msg("starting http-bridge")

	if cfg.Spec.Path == "" {
		fmt.Fprintln(os.Stderr, "no OpenAPI document given: set --openapi-spec or BRWSE_OPENAPI_SPEC_PATH")
		os.Exit(1)
	}

	doc, err := openapi.Load(cfg.Spec.Path)
	if err != nil {
		logger.Error().Str("path", cfg.Spec.Path).Str("error", err.Error()).Msg("failed to load OpenAPI document")
		os.Exit(1)
	}

	timeout := time.Duration(cfg.Spec.TimeoutSeconds) * time.Second
	httpBridge, err := bridge.NewHTTPBridge(doc, cfg.Spec.BaseURL, timeout, logger)
	if err != nil {
		logger.Error().Str("error", err.Error()).Msg("failed to create bridge")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := registry.Setup(ctx, cfg.Registry, logger); err != nil {
		logger.Error().Str("error", err.Error()).Msg("registry setup failed")
		os.Exit(1)
	}

	srv := bridge.NewServer(cfg.Server.Name, common.GetVersion(), bridge.LoggingMiddleware(logger))
	count, err := bridge.RegisterTools(ctx, srv, httpBridge, logger)
	if err != nil {
		logger.Error().Str("error", err.Error()).Msg("failed to register tools")
		os.Exit(1)
	}
	logger.Info().Int("tools", count).Str("base_url", httpBridge.BaseURL()).Msg("bridge ready")

	if err := bridge.Serve(srv, cfg.Server.Listen, cfg.Server.Stdio, logger); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

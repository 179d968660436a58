// Command postgres-bridge exposes a PostgreSQL database as an MCP query
// tool.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/brwse/bridge/internal/bridge"
	"github.com/brwse/bridge/internal/common"
	"github.com/brwse/bridge/internal/config"
	"github.com/brwse/bridge/internal/registry"
)

func main() {
	configFile := flag.String("config", "bridge.toml", "Path to config file")
	databaseURL := flag.String("database-url", "", "PostgreSQL connection string")
	listen := flag.String("listen", "", "Listen address for the streamable HTTP transport")
	stdio := flag.Bool("stdio", false, "Use stdio transport")
	flag.Parse()

	cfg, err := config.LoadFromFile(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	config.ApplyFlagOverrides(cfg, *listen, "", "")
	if *databaseURL != "" {
		cfg.Database.URL = *databaseURL
	}
	if *stdio {
		cfg.Server.Stdio = true
	}

	common.LoadVersionFromFile()
	logger := common.NewLoggerFromConfig(cfg.Logging)
	logger.Info().Str("version", common.GetFullVersion()).Msg("starting postgres-bridge")

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		logger.Error().Str("error", err.Error()).Msg("failed to open database")
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.Error().Str("error", err.Error()).Msg("failed to reach database")
		os.Exit(1)
	}

	if _, err := registry.Setup(ctx, cfg.Registry, logger); err != nil {
		logger.Error().Str("error", err.Error()).Msg("registry setup failed")
		os.Exit(1)
	}

	pgBridge := bridge.NewPostgresBridge(db, logger)
	srv := bridge.NewServer(cfg.Server.Name, common.GetVersion(), bridge.LoggingMiddleware(logger))
	if _, err := bridge.RegisterTools(ctx, srv, pgBridge, logger); err != nil {
		logger.Error().Str("error", err.Error()).Msg("failed to register tools")
		os.Exit(1)
	}
	logger.Info().Msg("bridge ready")

	if err := bridge.Serve(srv, cfg.Server.Listen, cfg.Server.Stdio, logger); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// Databricks MCP Server - A Model Context Protocol server for Databricks
// workspaces. Provides read-only tools over the Jobs and Unity Catalog APIs
// plus a cached fuzzy table finder.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/revodata/databricks-mcp-server/internal/base"
	"github.com/revodata/databricks-mcp-server/internal/config"
	apperrors "github.com/revodata/databricks-mcp-server/internal/errors"
	"github.com/revodata/databricks-mcp-server/internal/jobs"
	"github.com/revodata/databricks-mcp-server/internal/mask"
	"github.com/revodata/databricks-mcp-server/internal/namespace"
	"github.com/revodata/databricks-mcp-server/internal/unitycatalog"
	"github.com/revodata/databricks-mcp-server/tools"
	"github.com/revodata/databricks-mcp-server/tracing"
)

const (
	ServerName    = "databricks-mcp-server"
	ServerVersion = "1.0.0"
)

const instructions = `Databricks MCP Server gives read-only access to a Databricks workspace.

Jobs: databricks_list_jobs, databricks_get_job_details, databricks_get_job_runs.
Unity Catalog: databricks_list_catalogs, databricks_list_schemas, databricks_list_tables,
databricks_list_all_tables, databricks_get_table_details.
Discovery: databricks_find_tables fuzzy-matches catalog.schema.table names from a cached
listing; databricks_namespace_status reports how old that listing is.

Every tool returns {"success": bool, "content": ..., "error": "..."}.
Batch tools fail as a whole when any single item fails.`

// recoverPanic logs a panic that escaped to the top level
func recoverPanic(logger *slog.Logger, operation string) {
	if r := recover(); r != nil {
		logger.Error("Panic recovered",
			"operation", operation,
			"panic", r,
			"stack", string(debug.Stack()))
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   ServerName,
		Short: "MCP server for Databricks jobs and Unity Catalog",
		Long: `Serves Databricks workspace metadata to MCP clients over stdio, or over
streamable HTTP when --http is set.

Configuration is read from databricks-mcp.yaml (current directory or
~/.databricks-mcp/) and DATABRICKS_* environment variables, e.g.
DATABRICKS_HOST, DATABRICKS_TOKEN, DATABRICKS_CLIENT_MAX_RETRIES.`,
		Version:       ServerVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := config.NewViper(cfgFile)
			_ = v.BindPFlag("server.http_addr", cmd.Flags().Lookup("http"))
			_ = v.BindPFlag("server.log_level", cmd.Flags().Lookup("log-level"))

			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	root.Flags().StringVar(&cfgFile, "config", "", "config file (default: ./databricks-mcp.yaml)")
	root.Flags().String("http", "", "serve streamable HTTP on this address instead of stdio (e.g. :8080)")
	root.Flags().String("log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", ServerName, ServerVersion)
		},
	}
}

// app holds everything a transport needs
type app struct {
	server *mcp.Server
	cache  *namespace.Cache
	api    *base.Client
}

// newApp wires the fetcher, the domain clients and the tool registry.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	masks, err := mask.Load(cfg.MasksDir)
	if err != nil {
		return nil, apperrors.NewConfigurationError(config.EnvName("masks_dir"), err.Error())
	}

	api := base.NewClient(
		base.WithHTTPClient(base.NewHTTPClient(cfg.Client.RequestTimeout)),
		base.WithLogger(logger),
		base.WithCredentials(cfg.Host, cfg.Token),
		base.WithAPIVersion(cfg.APIVersion),
		base.WithMaxConcurrency(cfg.Client.MaxConcurrentRequests),
		base.WithRetry(cfg.Client.MaxRetries, cfg.Client.BaseDelay),
		base.WithMaxPages(cfg.Client.MaxPages),
	)

	jobsClient := jobs.NewClient(api, masks,
		jobs.WithLogger(logger),
		jobs.WithMaxRunsPerJob(cfg.Tools.MaxRunsPerJob),
	)
	ucClient := unitycatalog.NewClient(api, masks, unitycatalog.WithLogger(logger))
	cache := namespace.NewCache(ucClient,
		namespace.WithTTL(cfg.Namespace.TTL),
		namespace.WithLogger(logger),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Logger:       logger,
		Instructions: instructions,
	})

	registry := tools.NewHandlerRegistry(jobsClient, ucClient, cache, logger,
		tools.WithAggregationTimeout(cfg.Tools.AggregationTimeout))
	registry.RegisterAll(server)

	return &app{server: server, cache: cache, api: api}, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	// Configure logging to stderr (stdout is used for MCP protocol)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	defer recoverPanic(logger, "run")

	shutdownTracing, err := tracing.Setup(ctx, tracing.DefaultConfig(ServerVersion))
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Warn("Tracing shutdown failed", "error", err)
			}
		}()
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.api.Close()

	logger.Info("Starting Databricks MCP Server",
		"name", ServerName,
		"version", ServerVersion,
		"host", cfg.Host,
		"max_concurrent_requests", cfg.Client.MaxConcurrentRequests,
		"namespace_ttl", cfg.Namespace.TTL,
	)

	if cfg.Server.HTTPAddr != "" {
		handler, security := newRouter(a.server, a.cache, logger, SecurityConfig{
			RateLimit:   cfg.Server.RateLimit,
			MaxBodySize: cfg.Server.MaxBodySize,
		})
		defer security.Close()
		return serveHTTP(ctx, cfg.Server.HTTPAddr, handler, logger)
	}

	if err := a.server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

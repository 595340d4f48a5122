package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/context-cache/ctxc/internal/api"
	"github.com/context-cache/ctxc/internal/logger"
	"github.com/context-cache/ctxc/internal/mcp"
	"github.com/context-cache/ctxc/internal/scheduler"
)

var serveHTTPAddr string
var serveMCPStdio bool
var serveMCPAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the filesystem watcher and the reconcile scheduler",
	Long: `serve starts the long-running daemon: the filesystem watcher debounces
and ingests changes, a cron (if configured) periodically reconciles every
source, and the HTTP API exposes ingest/query/why/sources/tags.

Use 'context-cache mcp' instead (or alongside, with --mcp-stdio / --mcp-addr
below) to expose the retriever over the Model Context Protocol.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHTTPAddr, "addr", "", "HTTP listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveMCPStdio, "mcp-stdio", false, "also run an MCP server over stdio")
	serveCmd.Flags().StringVar(&serveMCPAddr, "mcp-addr", "", "also run an MCP server over streamable HTTP at this address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := ensureWired(ctx); err != nil {
		return err
	}

	if err := watcherSvc.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcherSvc.Stop()

	schedulerSvc.Start(ctx)
	defer schedulerSvc.Stop()

	cronSvc, err := scheduler.NewCron(cfg.ReconcileCron, watcherSvc)
	if err != nil {
		return fmt.Errorf("schedule reconcile cron: %w", err)
	}
	cronSvc.Start()
	defer cronSvc.Stop()

	addr := serveHTTPAddr
	if addr == "" {
		addr = cfg.HTTPAddr
	}

	handlers := &api.Handlers{Store: storeSvc, Retriever: retrieverSvc, Ingest: ingestSvc, CrossEncoder: crossEncoderSvc}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(handlers, cfg.JWTSecret),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if serveMCPStdio {
		server := mcp.NewServer(retrieverSvc)
		go func() {
			if err := server.Run(ctx); err != nil {
				errCh <- fmt.Errorf("mcp stdio: %w", err)
			}
		}()
	}
	if serveMCPAddr != "" {
		server := mcp.NewServer(retrieverSvc)
		go func() {
			logger.Info("mcp http listening on %s", serveMCPAddr)
			if err := server.RunHTTP(ctx, serveMCPAddr); err != nil {
				errCh <- fmt.Errorf("mcp http: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

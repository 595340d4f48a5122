package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/context-cache/ctxc/internal/mcp"
)

var mcpAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run a standalone MCP server (query and why tools)",
	Long: `Starts the Model Context Protocol server for AI assistant integration.
By default it communicates over stdio; pass --addr to run streamable HTTP
instead (useful for MCP Inspector or remote access).`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpAddr, "addr", "", "HTTP address (empty = stdio)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	if err := ensureWired(cmd.Context()); err != nil {
		return err
	}

	server := mcp.NewServer(retrieverSvc)
	if mcpAddr != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://%s\n", mcpAddr)
		return server.RunHTTP(cmd.Context(), mcpAddr)
	}
	return server.Run(cmd.Context())
}

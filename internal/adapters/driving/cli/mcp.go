package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/shelf/internal/adapters/driving/mcp"
)

var mcpServeAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol server",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the shelf to MCP clients",
	Long: `Serve the shelf over the Model Context Protocol.

Tools: ingest_book, get_book, list_books.
Resources: shelf://books and shelf://books/{bookId}.

Without an address the server speaks JSON-RPC on stdio, which is what
desktop assistants expect when they launch "shelf mcp serve" themselves.
With --addr (or mcp.addr in the config) it serves streamable HTTP instead.

Examples:
  shelf mcp serve
  shelf mcp serve --addr 127.0.0.1:8081`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().StringVar(&mcpServeAddr, "addr", "", "serve streamable HTTP on this address instead of stdio (overrides mcp.addr)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	server, err := mcp.NewServer(&mcp.Ports{
		Ingest:  ingestService,
		Books:   bookService,
		Fetcher: fetcher,
	})
	if err != nil {
		return err
	}

	addr := settings.MCP.Addr
	if mcpServeAddr != "" {
		addr = mcpServeAddr
	}
	if addr == "" {
		return server.Run(cmd.Context())
	}

	fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://%s\n", addr)
	return server.RunHTTP(cmd.Context(), addr)
}

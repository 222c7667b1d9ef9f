package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/shelf/internal/adapters/driving/api"
	"github.com/custodia-labs/shelf/internal/adapters/driving/mcp"
	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
	"github.com/custodia-labs/shelf/internal/logger"
)

var (
	serveAddr    string
	serveInbox   string
	serveMCPAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the HTTP API (default :8080) and, when configured, the inbox
watcher and the MCP streamable HTTP endpoint. Runs until interrupted.

Files dropped into the inbox directory after startup are ingested once
they stop changing. Files already present are left alone; use
'shelf ingest <dir>' for those.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().StringVar(&serveInbox, "inbox", "", "watch this directory for new books (overrides inbox.dir)")
	serveCmd.Flags().StringVar(&serveMCPAddr, "mcp-addr", "", "also serve MCP over HTTP on this address (overrides mcp.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errIngestNotConfigured
	}
	if bookService == nil {
		return errBooksNotConfigured
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := api.Options{
		Addr:         settings.Server.Addr,
		RateLimit:    settings.Server.RateLimit,
		Burst:        settings.Server.Burst,
		MaxBodyBytes: settings.Ingest.MaxDocumentBytes,
	}
	if serveAddr != "" {
		opts.Addr = serveAddr
	}
	server := api.NewServer(ingestService, bookService, opts)

	inbox := inboxConnector
	if serveInbox != "" {
		if openDir == nil {
			return errors.New("inbox watching not configured")
		}
		inbox = openDir(serveInbox)
		defer inbox.Close()
	}

	mcpAddr := settings.MCP.Addr
	if serveMCPAddr != "" {
		mcpAddr = serveMCPAddr
	}
	var mcpServer *mcp.Server
	if mcpAddr != "" {
		var err error
		mcpServer, err = mcp.NewServer(&mcp.Ports{
			Ingest:  ingestService,
			Books:   bookService,
			Fetcher: fetcher,
		})
		if err != nil {
			return err
		}
	}

	// Everything is built; from here on every failure goes through g.
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx)
	})

	if inbox != nil {
		g.Go(func() error {
			return watchInbox(ctx, inbox)
		})
	}

	if mcpServer != nil {
		g.Go(func() error {
			logger.Info("MCP server listening on %s", mcpAddr)
			return mcpServer.RunHTTP(ctx, mcpAddr)
		})
	}

	return g.Wait()
}

// watchInbox ingests documents from the connector until ctx is done.
func watchInbox(ctx context.Context, inbox driven.Connector) error {
	docs, err := inbox.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watching inbox: %w", err)
	}
	logger.Info("Watching %s inbox for new books", inbox.Type())

	var g errgroup.Group
	g.SetLimit(max(1, settings.Ingest.Workers))
	for doc := range docs {
		g.Go(func() error {
			// The coordinator records and logs every outcome.
			_, _ = ingestService.Ingest(ctx, doc, domain.IngestOptions{})
			return nil
		})
	}
	return g.Wait()
}

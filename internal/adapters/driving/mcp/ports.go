package mcp

import (
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
	"github.com/custodia-labs/shelf/internal/core/ports/driving"
)

// Ports aggregates the services required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Ingest runs documents through the pipeline.
	Ingest driving.IngestService

	// Books reads stored books.
	Books driving.BookService

	// Fetcher downloads books by URL. Optional; without it ingest_book
	// only accepts inline content.
	Fetcher driven.Fetcher
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Ingest == nil {
		return ErrMissingIngestService
	}
	if p.Books == nil {
		return ErrMissingBookService
	}
	return nil
}

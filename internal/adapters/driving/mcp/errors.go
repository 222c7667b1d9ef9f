// Package mcp provides an MCP (Model Context Protocol) server adapter for Shelf.
// It lets AI assistants ingest books and read the stored library.
package mcp

import "errors"

var (
	// ErrMissingIngestService is returned when the ingest service is not provided.
	ErrMissingIngestService = errors.New("mcp: ingest service is required")

	// ErrMissingBookService is returned when the book service is not provided.
	ErrMissingBookService = errors.New("mcp: book service is required")
)

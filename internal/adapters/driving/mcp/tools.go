package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/shelf/internal/core/domain"
)

// IngestInput is the input schema for the ingest_book tool.
type IngestInput struct {
	SourceID  string `json:"source_id,omitempty" jsonschema:"identifier of the document, usually its file name; the book id is derived from it"`
	Content   string `json:"content,omitempty" jsonschema:"the book markup (FB2, XML or HTML)"`
	URL       string `json:"url,omitempty" jsonschema:"download the book from this URL instead of passing content"`
	MIMEType  string `json:"mime_type,omitempty" jsonschema:"declared content type, e.g. application/x-fictionbook+xml"`
	Overwrite bool   `json:"overwrite,omitempty" jsonschema:"replace an existing book with the same id"`
}

// IngestOutput is the output schema for the ingest_book tool.
type IngestOutput struct {
	Ticket      string `json:"ticket"`
	BookID      string `json:"book_id,omitempty"`
	State       string `json:"state"`
	Outcome     string `json:"outcome"`
	Diagnostics int    `json:"diagnostics"`
}

// GetBookInput is the input schema for the get_book tool.
type GetBookInput struct {
	ID string `json:"id" jsonschema:"the book id"`
}

// BookOutput is the output schema for the get_book tool.
type BookOutput struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Sections []SectionOutput   `json:"sections"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SectionOutput is one section of a book.
type SectionOutput struct {
	Label string `json:"label"`
	Body  string `json:"body"`
}

// ListBooksInput is the input schema for the list_books tool.
type ListBooksInput struct{}

// ListBooksOutput is the output schema for the list_books tool.
type ListBooksOutput struct {
	Books []BookSummaryOutput `json:"books"`
	Count int                 `json:"count"`
}

// BookSummaryOutput is one entry of the book listing.
type BookSummaryOutput struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Sections   int    `json:"sections"`
	IngestedAt string `json:"ingested_at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_book",
		Description: "Parse, normalise and store a book from inline markup or a URL",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_book",
		Description: "Get a stored book with its sections and metadata",
	}, s.handleGetBook)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_books",
		Description: "List all stored books",
	}, s.handleListBooks)
}

// handleIngest handles the ingest_book tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	raw, err := s.rawDocument(ctx, input)
	if err != nil {
		return nil, IngestOutput{}, err
	}

	res, err := s.ports.Ingest.Ingest(ctx, *raw, domain.IngestOptions{Overwrite: input.Overwrite})
	if err != nil {
		return nil, IngestOutput{}, fmt.Errorf("ingestion %s failed (%s): %w", res.Ticket, res.Outcome, err)
	}

	return nil, IngestOutput{
		Ticket:      res.Ticket,
		BookID:      res.BookID,
		State:       res.State.String(),
		Outcome:     res.Outcome.String(),
		Diagnostics: len(res.Diagnostics),
	}, nil
}

func (s *Server) rawDocument(ctx context.Context, input IngestInput) (*domain.RawDocument, error) {
	switch {
	case input.URL != "" && input.Content != "":
		return nil, errors.New("pass either content or url, not both")

	case input.URL != "":
		if s.ports.Fetcher == nil {
			return nil, errors.New("url ingestion is not enabled")
		}
		raw, err := s.ports.Fetcher.Fetch(ctx, input.URL)
		if err != nil {
			return nil, err
		}
		if input.SourceID != "" {
			raw.SourceID = input.SourceID
		}
		if input.MIMEType != "" {
			raw.MIMEType = input.MIMEType
		}
		return raw, nil

	case input.Content != "":
		if input.SourceID == "" {
			return nil, errors.New("source_id is required with inline content")
		}
		return &domain.RawDocument{
			SourceID: input.SourceID,
			MIMEType: input.MIMEType,
			Content:  []byte(input.Content),
			Metadata: map[string]string{"connector": "mcp"},
		}, nil

	default:
		return nil, errors.New("content or url is required")
	}
}

// handleGetBook handles the get_book tool invocation.
func (s *Server) handleGetBook(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetBookInput,
) (*mcp.CallToolResult, BookOutput, error) {
	book, err := s.ports.Books.Get(ctx, input.ID)
	if err != nil {
		return nil, BookOutput{}, err
	}

	output := BookOutput{
		ID:       book.ID,
		Title:    book.Title,
		Sections: make([]SectionOutput, len(book.Sections)),
		Metadata: book.Metadata,
	}
	for i, sec := range book.Sections {
		output.Sections[i] = SectionOutput{Label: sec.Label, Body: sec.Body}
	}
	return nil, output, nil
}

// handleListBooks handles the list_books tool invocation.
func (s *Server) handleListBooks(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListBooksInput,
) (*mcp.CallToolResult, ListBooksOutput, error) {
	books, err := s.ports.Books.List(ctx)
	if err != nil {
		return nil, ListBooksOutput{}, err
	}

	output := ListBooksOutput{
		Books: make([]BookSummaryOutput, len(books)),
		Count: len(books),
	}
	for i, b := range books {
		output.Books[i] = BookSummaryOutput{
			ID:         b.ID,
			Title:      b.Title,
			Sections:   b.Sections,
			IngestedAt: b.IngestedAt.Format(time.RFC3339),
		}
	}
	return nil, output, nil
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/shelf/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for Shelf resources.
	uriScheme = "shelf://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing books.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "books",
		Name:        "books",
		Description: "List of all stored books",
		MIMEType:    "application/json",
	}, s.handleBooksResource)

	// Template for a single book rendered as Markdown.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "books/{bookId}",
		Name:        "book-content",
		Description: "Content of a stored book",
		MIMEType:    "text/markdown",
	}, s.handleBookResource)
}

// handleBooksResource returns a list of all stored books.
func (s *Server) handleBooksResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	books, err := s.ports.Books.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}

	type bookInfo struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Sections int    `json:"sections"`
		URI      string `json:"uri"`
	}

	infos := make([]bookInfo, len(books))
	for i, b := range books {
		infos[i] = bookInfo{
			ID:       b.ID,
			Title:    b.Title,
			Sections: b.Sections,
			URI:      uriScheme + "books/" + b.ID,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling books: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleBookResource returns a single book. Markdown is preferred; JSON is
// used when no Markdown exporter is configured.
func (s *Server) handleBookResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract bookId from URI: shelf://books/{bookId}
	bookID := extractBookID(req.Params.URI)
	if bookID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	for _, format := range []string{"md", "json"} {
		out, err := s.ports.Books.Export(ctx, bookID, format)
		switch {
		case errors.Is(err, domain.ErrUnsupportedType):
			continue
		case errors.Is(err, domain.ErrNotFound):
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		case err != nil:
			return nil, fmt.Errorf("reading book: %w", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: out.ContentType,
				Text:     string(out.Data),
			}},
		}, nil
	}

	book, err := s.ports.Books.Get(ctx, bookID)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	data, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling book: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractBookID extracts the book ID from a URI like shelf://books/{bookId}.
func extractBookID(uri string) string {
	const prefix = uriScheme + "books/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

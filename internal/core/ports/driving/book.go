package driving

import (
	"context"

	"github.com/custodia-labs/shelf/internal/core/domain"
)

// BookService reads and manages stored books.
type BookService interface {
	// Get retrieves a book by ID.
	Get(ctx context.Context, id string) (*domain.Book, error)

	// List returns summaries of all stored books.
	List(ctx context.Context) ([]domain.BookSummary, error)

	// Delete removes a stored book.
	Delete(ctx context.Context, id string) error

	// Export renders a stored book in the named format.
	Export(ctx context.Context, id, format string) (*Export, error)

	// Formats returns the available export format names.
	Formats() []string

	// Records returns recent ingestion records, newest first.
	Records(ctx context.Context, limit int) ([]domain.IngestionRecord, error)
}

// Export is a rendered book ready for download.
type Export struct {
	// Filename is the suggested download file name.
	Filename string

	// ContentType is the MIME type of Data.
	ContentType string

	// Data is the rendered output.
	Data []byte
}

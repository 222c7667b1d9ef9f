package driven

import "github.com/custodia-labs/shelf/internal/core/domain"

// Exporter renders a stored book into a download format.
type Exporter interface {
	// Format returns the format name (e.g. "md", "pdf").
	Format() string

	// ContentType returns the MIME type of the rendered output.
	ContentType() string

	// Extension returns the file extension for this format (e.g. ".md").
	Extension() string

	// Export renders the book.
	Export(book *domain.Book) ([]byte, error)
}

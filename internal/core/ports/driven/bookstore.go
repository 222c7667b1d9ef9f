package driven

import (
	"context"

	"github.com/custodia-labs/shelf/internal/core/domain"
)

// BookStore persists normalised books under the books storage area.
// Implementations must be safe for concurrent use. Saves for the same ID
// are serialized; saves for distinct IDs proceed independently.
type BookStore interface {
	// Save stores a book. It fails with domain.ErrDuplicateID if the ID
	// exists and opts.Overwrite is false, and with domain.ErrStorage on I/O
	// failure or when ctx expires. The book is durable when Save returns nil.
	// A cancelled Save never leaves a partial book visible to Load.
	Save(ctx context.Context, book *domain.Book, opts domain.SaveOptions) error

	// Load retrieves a book by ID. Returns domain.ErrNotFound if absent.
	Load(ctx context.Context, id string) (*domain.Book, error)

	// List returns summaries of all stored books ordered by ID.
	List(ctx context.Context) ([]domain.BookSummary, error)

	// Delete removes a book. Returns domain.ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/shelf/internal/adapters/driven/storage"
	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
)

// Ensure BookStore implements the interface.
var _ driven.BookStore = (*BookStore)(nil)

// BookStore is an in-memory implementation of driven.BookStore.
// Books are copied on the way in and out.
type BookStore struct {
	mu    sync.RWMutex
	books map[string]*domain.Book
}

// NewBookStore creates a new in-memory book store.
func NewBookStore() *BookStore {
	return &BookStore{
		books: make(map[string]*domain.Book),
	}
}

// Save stores a book.
func (s *BookStore) Save(ctx context.Context, book *domain.Book, opts domain.SaveOptions) error {
	if book == nil || !domain.ValidBookID(book.ID) {
		return fmt.Errorf("%w: invalid book id", domain.ErrStorage)
	}
	if err := ctx.Err(); err != nil {
		return storage.Fail("saving book", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[book.ID]; ok && !opts.Overwrite {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, book.ID)
	}
	s.books[book.ID] = book.Clone()
	return nil
}

// Load retrieves a book by ID.
func (s *BookStore) Load(_ context.Context, id string) (*domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	book, ok := s.books[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return book.Clone(), nil
}

// List returns summaries of all books ordered by ID.
func (s *BookStore) List(_ context.Context) ([]domain.BookSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summaries := make([]domain.BookSummary, 0, len(s.books))
	for _, b := range s.books {
		summaries = append(summaries, b.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries, nil
}

// Delete removes a book.
func (s *BookStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.books, id)
	return nil
}

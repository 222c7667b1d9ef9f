package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
	"github.com/custodia-labs/shelf/internal/core/ports/driving"
)

// Ensure BookService implements the interface.
var _ driving.BookService = (*BookService)(nil)

// BookService provides read access to stored books and renders exports.
type BookService struct {
	books     driven.BookStore
	records   driven.RecordLog
	exporters map[string]driven.Exporter
}

// NewBookService creates a book service. Exporters are keyed by their
// lower-cased format name; a later exporter replaces an earlier one.
func NewBookService(books driven.BookStore, records driven.RecordLog, exporters ...driven.Exporter) *BookService {
	s := &BookService{
		books:     books,
		records:   records,
		exporters: make(map[string]driven.Exporter, len(exporters)),
	}
	for _, e := range exporters {
		s.exporters[strings.ToLower(e.Format())] = e
	}
	return s
}

// Get retrieves a book by ID.
func (s *BookService) Get(ctx context.Context, id string) (*domain.Book, error) {
	if !domain.ValidBookID(id) {
		return nil, fmt.Errorf("book %q: %w", id, domain.ErrNotFound)
	}
	return s.books.Load(ctx, id)
}

// List returns summaries of all stored books ordered by ID.
func (s *BookService) List(ctx context.Context) ([]domain.BookSummary, error) {
	return s.books.List(ctx)
}

// Delete removes a stored book.
func (s *BookService) Delete(ctx context.Context, id string) error {
	if !domain.ValidBookID(id) {
		return fmt.Errorf("book %q: %w", id, domain.ErrNotFound)
	}
	return s.books.Delete(ctx, id)
}

// Export renders a stored book in the named format.
func (s *BookService) Export(ctx context.Context, id, format string) (*driving.Export, error) {
	exporter, ok := s.exporters[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return nil, fmt.Errorf("export format %q: %w", format, domain.ErrUnsupportedType)
	}

	book, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := exporter.Export(book)
	if err != nil {
		return nil, fmt.Errorf("export %s as %s: %w", id, exporter.Format(), err)
	}

	return &driving.Export{
		Filename:    book.ID + exporter.Extension(),
		ContentType: exporter.ContentType(),
		Data:        data,
	}, nil
}

// Formats returns the available export format names, sorted.
func (s *BookService) Formats() []string {
	formats := make([]string, 0, len(s.exporters))
	for name := range s.exporters {
		formats = append(formats, name)
	}
	sort.Strings(formats)
	return formats
}

// Records returns recent ingestion records, newest first.
// A non-positive limit returns every record.
func (s *BookService) Records(ctx context.Context, limit int) ([]domain.IngestionRecord, error) {
	return s.records.Recent(ctx, limit)
}

package mcp

import (
	"context"
	"errors"

	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driving"
)

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	last *domain.RawDocument
	opts domain.IngestOptions
	err  error
}

func (m *mockIngestService) Ingest(
	_ context.Context,
	raw domain.RawDocument,
	opts domain.IngestOptions,
) (*domain.IngestResult, error) {
	m.last = &raw
	m.opts = opts
	res := &domain.IngestResult{
		Ticket:   "ticket-1",
		SourceID: raw.SourceID,
		State:    domain.StateSucceeded,
		Outcome:  domain.OutcomeSuccess,
		BookID:   domain.BookID(raw.SourceID),
	}
	if m.err != nil {
		res.State = domain.StateFailed
		res.Outcome = domain.OutcomeFor(m.err)
		res.BookID = ""
		res.Message = m.err.Error()
	}
	return res, m.err
}

func (m *mockIngestService) IngestAll(
	ctx context.Context,
	raws []domain.RawDocument,
	opts domain.IngestOptions,
) []domain.IngestResult {
	out := make([]domain.IngestResult, len(raws))
	for i := range raws {
		res, _ := m.Ingest(ctx, raws[i], opts)
		out[i] = *res
	}
	return out
}

func (m *mockIngestService) Status(_ context.Context, _ string) (*domain.IngestResult, error) {
	return nil, domain.ErrNotFound
}

func (m *mockIngestService) Stats(_ context.Context) domain.IngestStats {
	return domain.IngestStats{}
}

// mockBookService is a mock implementation of driving.BookService.
type mockBookService struct {
	books   []domain.Book
	formats []string
	err     error
}

func (m *mockBookService) find(id string) (*domain.Book, error) {
	for i := range m.books {
		if m.books[i].ID == id {
			return m.books[i].Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockBookService) Get(_ context.Context, id string) (*domain.Book, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.find(id)
}

func (m *mockBookService) List(_ context.Context) ([]domain.BookSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.BookSummary, len(m.books))
	for i := range m.books {
		out[i] = m.books[i].Summary()
	}
	return out, nil
}

func (m *mockBookService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockBookService) Export(_ context.Context, id, format string) (*driving.Export, error) {
	supported := false
	for _, f := range m.formats {
		if f == format {
			supported = true
		}
	}
	if !supported {
		return nil, domain.ErrUnsupportedType
	}
	if m.err != nil {
		return nil, m.err
	}
	book, err := m.find(id)
	if err != nil {
		return nil, err
	}
	return &driving.Export{
		Filename:    book.ID + "." + format,
		ContentType: "text/markdown",
		Data:        []byte("# " + book.Title),
	}, nil
}

func (m *mockBookService) Formats() []string { return m.formats }

func (m *mockBookService) Records(_ context.Context, _ int) ([]domain.IngestionRecord, error) {
	return nil, m.err
}

// mockFetcher is a mock implementation of driven.Fetcher.
type mockFetcher struct {
	raw *domain.RawDocument
	err error
	url string
}

func (m *mockFetcher) Fetch(_ context.Context, url string) (*domain.RawDocument, error) {
	m.url = url
	if m.err != nil {
		return nil, m.err
	}
	raw := *m.raw
	return &raw, nil
}

var errBoom = errors.New("boom")

func testBooks() []domain.Book {
	return []domain.Book{
		{
			ID:       "war-and-peace",
			SourceID: "war-and-peace.fb2",
			Title:    "War and Peace",
			Sections: []domain.Section{{Label: "Book One", Body: "Well, Prince."}},
			Metadata: map[string]string{"author": "Leo Tolstoy"},
		},
	}
}

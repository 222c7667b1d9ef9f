package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/net/html"

	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
)

// --- Mock implementations shared by service tests ---

// mockParsers implements driven.ParserRegistry.
type mockParsers struct {
	parseFn func(ctx context.Context, raw *domain.RawDocument) (*domain.ParsedTree, error)
	calls   atomic.Int64
}

func (m *mockParsers) Parse(ctx context.Context, raw *domain.RawDocument) (*domain.ParsedTree, error) {
	m.calls.Add(1)
	if m.parseFn != nil {
		return m.parseFn(ctx, raw)
	}
	return &domain.ParsedTree{Root: &html.Node{Type: html.DocumentNode}, Format: domain.FormatXML}, nil
}

func (m *mockParsers) Register(driven.Parser)       {}
func (m *mockParsers) SupportedMIMETypes() []string { return nil }

// mockNormaliser implements driven.Normaliser.
type mockNormaliser struct {
	normaliseFn func(ctx context.Context, tree *domain.ParsedTree, sourceID string) (*domain.Book, error)
	calls       atomic.Int64
}

func (m *mockNormaliser) Normalise(ctx context.Context, tree *domain.ParsedTree, sourceID string) (*domain.Book, error) {
	m.calls.Add(1)
	if m.normaliseFn != nil {
		return m.normaliseFn(ctx, tree, sourceID)
	}
	return &domain.Book{
		ID:       domain.BookID(sourceID),
		SourceID: sourceID,
		Title:    "Test",
		Sections: []domain.Section{{Label: "ch1", Body: "Hello"}},
	}, nil
}

// mockBookStore implements driven.BookStore over a map.
type mockBookStore struct {
	mu     sync.Mutex
	books  map[string]*domain.Book
	saveFn func(ctx context.Context, book *domain.Book, opts domain.SaveOptions) error
	saves  atomic.Int64
}

func newMockBookStore() *mockBookStore {
	return &mockBookStore{books: make(map[string]*domain.Book)}
}

func (m *mockBookStore) Save(ctx context.Context, book *domain.Book, opts domain.SaveOptions) error {
	m.saves.Add(1)
	if m.saveFn != nil {
		return m.saveFn(ctx, book, opts)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[book.ID]; ok && !opts.Overwrite {
		return domain.ErrDuplicateID
	}
	m.books[book.ID] = book.Clone()
	return nil
}

func (m *mockBookStore) Load(_ context.Context, id string) (*domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b.Clone(), nil
}

func (m *mockBookStore) List(_ context.Context) ([]domain.BookSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BookSummary
	for _, b := range m.books {
		out = append(out, b.Summary())
	}
	return out, nil
}

func (m *mockBookStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.books, id)
	return nil
}

// mockRecordLog implements driven.RecordLog and remembers the context
// state seen by each append.
type mockRecordLog struct {
	mu        sync.Mutex
	records   []domain.IngestionRecord
	ctxErrs   []error
	dropped   int64
	recentErr error
}

func (m *mockRecordLog) Append(ctx context.Context, record domain.IngestionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
}

func (m *mockRecordLog) Recent(_ context.Context, limit int) ([]domain.IngestionRecord, error) {
	if m.recentErr != nil {
		return nil, m.recentErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.IngestionRecord, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *mockRecordLog) Dropped() int64 { return m.dropped }

func (m *mockRecordLog) all() []domain.IngestionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.IngestionRecord(nil), m.records...)
}

// mockExporter implements driven.Exporter.
type mockExporter struct {
	format string
	err    error
}

func (m *mockExporter) Format() string      { return m.format }
func (m *mockExporter) ContentType() string { return "text/plain" }
func (m *mockExporter) Extension() string   { return "." + m.format }

func (m *mockExporter) Export(book *domain.Book) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []byte(book.Title), nil
}

var errBoom = errors.New("boom")

package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/shelf/internal/core/domain"
)

func newTestBookService(t *testing.T) (*BookService, *mockBookStore, *mockRecordLog) {
	t.Helper()
	s := newMockBookStore()
	require.NoError(t, s.Save(context.Background(), &domain.Book{
		ID:       "t1",
		SourceID: "t1",
		Title:    "Test",
		Sections: []domain.Section{{Label: "ch1", Body: "Hello"}},
	}, domain.SaveOptions{}))
	l := &mockRecordLog{}
	svc := NewBookService(s, l, &mockExporter{format: "md"}, &mockExporter{format: "TXT"})
	return svc, s, l
}

func TestBookService_Get(t *testing.T) {
	svc, _, _ := newTestBookService(t)

	book, err := svc.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "Test", book.Title)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookService_ListAndDelete(t *testing.T) {
	svc, _, _ := newTestBookService(t)
	ctx := context.Background()

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "t1", list[0].ID)

	require.NoError(t, svc.Delete(ctx, "t1"))
	assert.ErrorIs(t, svc.Delete(ctx, "t1"), domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, ".."), domain.ErrNotFound)

	list, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBookService_Export(t *testing.T) {
	svc, _, _ := newTestBookService(t)
	ctx := context.Background()

	out, err := svc.Export(ctx, "t1", "MD")
	require.NoError(t, err)
	assert.Equal(t, "t1.md", out.Filename)
	assert.Equal(t, "text/plain", out.ContentType)
	assert.Equal(t, []byte("Test"), out.Data)

	_, err = svc.Export(ctx, "t1", "epub")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = svc.Export(ctx, "missing", "md")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookService_Export_ExporterError(t *testing.T) {
	svc := NewBookService(newMockBookStore(), &mockRecordLog{}, &mockExporter{format: "pdf", err: errBoom})
	_, err := svc.Export(context.Background(), "t1", "pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	s := newMockBookStore()
	require.NoError(t, s.Save(context.Background(), &domain.Book{ID: "t1"}, domain.SaveOptions{}))
	svc = NewBookService(s, &mockRecordLog{}, &mockExporter{format: "pdf", err: errBoom})
	_, err = svc.Export(context.Background(), "t1", "pdf")
	assert.ErrorIs(t, err, errBoom)
}

func TestBookService_Formats(t *testing.T) {
	svc, _, _ := newTestBookService(t)
	assert.Equal(t, []string{"md", "txt"}, svc.Formats())
}

func TestBookService_Records(t *testing.T) {
	svc, _, l := newTestBookService(t)
	ctx := context.Background()
	now := time.Now().UTC()
	l.Append(ctx, domain.IngestionRecord{ID: "r1", Outcome: domain.OutcomeSuccess, Timestamp: now})
	l.Append(ctx, domain.IngestionRecord{ID: "r2", Outcome: domain.OutcomeParseError, Timestamp: now})

	recs, err := svc.Records(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "r2", recs[0].ID)

	l.recentErr = domain.ErrStorage
	_, err = svc.Records(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrStorage)
}

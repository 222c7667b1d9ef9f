package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/shelf/internal/core/domain"
)

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	if ports.Ingest == nil {
		ports.Ingest = &mockIngestService{}
	}
	if ports.Books == nil {
		ports.Books = &mockBookService{}
	}
	server, err := NewServer(ports)
	require.NoError(t, err)
	return server
}

func TestServer_handleIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("ingests inline content", func(t *testing.T) {
		ingest := &mockIngestService{}
		server := newTestServer(t, &Ports{Ingest: ingest})

		input := IngestInput{
			SourceID:  "t1.fb2",
			Content:   "<FictionBook/>",
			MIMEType:  "application/x-fictionbook+xml",
			Overwrite: true,
		}
		_, output, err := server.handleIngest(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "ticket-1", output.Ticket)
		assert.Equal(t, domain.BookID("t1.fb2"), output.BookID)
		assert.Equal(t, "succeeded", output.State)
		assert.Equal(t, "success", output.Outcome)

		require.NotNil(t, ingest.last)
		assert.Equal(t, "t1.fb2", ingest.last.SourceID)
		assert.Equal(t, []byte("<FictionBook/>"), ingest.last.Content)
		assert.Equal(t, "mcp", ingest.last.Metadata["connector"])
		assert.True(t, ingest.opts.Overwrite)
	})

	t.Run("ingests from url", func(t *testing.T) {
		ingest := &mockIngestService{}
		fetcher := &mockFetcher{raw: &domain.RawDocument{
			SourceID: "remote.fb2",
			Content:  []byte("<FictionBook/>"),
		}}
		server := newTestServer(t, &Ports{Ingest: ingest, Fetcher: fetcher})

		_, output, err := server.handleIngest(ctx, nil, IngestInput{URL: "https://example.com/remote.fb2"})

		require.NoError(t, err)
		assert.Equal(t, domain.BookID("remote.fb2"), output.BookID)
		assert.Equal(t, "https://example.com/remote.fb2", fetcher.url)
		assert.Equal(t, "remote.fb2", ingest.last.SourceID)
	})

	t.Run("source id overrides fetched name", func(t *testing.T) {
		ingest := &mockIngestService{}
		fetcher := &mockFetcher{raw: &domain.RawDocument{SourceID: "download"}}
		server := newTestServer(t, &Ports{Ingest: ingest, Fetcher: fetcher})

		_, _, err := server.handleIngest(ctx, nil, IngestInput{
			URL:      "https://example.com/download",
			SourceID: "named.fb2",
			MIMEType: "text/xml",
		})

		require.NoError(t, err)
		assert.Equal(t, "named.fb2", ingest.last.SourceID)
		assert.Equal(t, "text/xml", ingest.last.MIMEType)
	})

	t.Run("url without fetcher is rejected", func(t *testing.T) {
		server := newTestServer(t, &Ports{})
		_, _, err := server.handleIngest(ctx, nil, IngestInput{URL: "https://example.com/a.fb2"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not enabled")
	})

	t.Run("fetch errors are returned", func(t *testing.T) {
		server := newTestServer(t, &Ports{Fetcher: &mockFetcher{err: errBoom}})
		_, _, err := server.handleIngest(ctx, nil, IngestInput{URL: "https://example.com/a.fb2"})
		assert.ErrorIs(t, err, errBoom)
	})

	t.Run("invalid inputs", func(t *testing.T) {
		server := newTestServer(t, &Ports{Fetcher: &mockFetcher{}})
		tests := []struct {
			name  string
			input IngestInput
		}{
			{"nothing", IngestInput{}},
			{"both content and url", IngestInput{Content: "x", URL: "https://example.com"}},
			{"content without source", IngestInput{Content: "x"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, _, err := server.handleIngest(ctx, nil, tt.input)
				assert.Error(t, err)
			})
		}
	})

	t.Run("pipeline failure keeps sentinel and ticket", func(t *testing.T) {
		server := newTestServer(t, &Ports{Ingest: &mockIngestService{err: domain.ErrParse}})
		_, _, err := server.handleIngest(ctx, nil, IngestInput{SourceID: "bad.fb2", Content: "junk"})

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrParse)
		assert.Contains(t, err.Error(), "ticket-1")
		assert.Contains(t, err.Error(), "parse-error")
	})
}

func TestServer_handleGetBook(t *testing.T) {
	ctx := context.Background()

	t.Run("returns book", func(t *testing.T) {
		server := newTestServer(t, &Ports{Books: &mockBookService{books: testBooks()}})

		_, output, err := server.handleGetBook(ctx, nil, GetBookInput{ID: "war-and-peace"})

		require.NoError(t, err)
		assert.Equal(t, "War and Peace", output.Title)
		require.Len(t, output.Sections, 1)
		assert.Equal(t, "Book One", output.Sections[0].Label)
		assert.Equal(t, "Well, Prince.", output.Sections[0].Body)
		assert.Equal(t, "Leo Tolstoy", output.Metadata["author"])
	})

	t.Run("missing book", func(t *testing.T) {
		server := newTestServer(t, &Ports{Books: &mockBookService{}})
		_, _, err := server.handleGetBook(ctx, nil, GetBookInput{ID: "nope"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestServer_handleListBooks(t *testing.T) {
	ctx := context.Background()

	t.Run("lists books", func(t *testing.T) {
		server := newTestServer(t, &Ports{Books: &mockBookService{books: testBooks()}})

		_, output, err := server.handleListBooks(ctx, nil, ListBooksInput{})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		assert.Equal(t, "war-and-peace", output.Books[0].ID)
		assert.Equal(t, 1, output.Books[0].Sections)
	})

	t.Run("store failure", func(t *testing.T) {
		server := newTestServer(t, &Ports{Books: &mockBookService{err: domain.ErrStorage}})
		_, _, err := server.handleListBooks(ctx, nil, ListBooksInput{})
		assert.ErrorIs(t, err, domain.ErrStorage)
	})
}

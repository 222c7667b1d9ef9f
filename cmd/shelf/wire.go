package main

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/shelf/internal/adapters/driven/config/file"
	"github.com/custodia-labs/shelf/internal/adapters/driven/storage/filesystem"
	"github.com/custodia-labs/shelf/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/shelf/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/shelf/internal/adapters/driving/cli"
	"github.com/custodia-labs/shelf/internal/config"
	"github.com/custodia-labs/shelf/internal/connectors/fetch"
	"github.com/custodia-labs/shelf/internal/connectors/inbox"
	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
	"github.com/custodia-labs/shelf/internal/core/services"
	"github.com/custodia-labs/shelf/internal/exporters"
	"github.com/custodia-labs/shelf/internal/logger"
	"github.com/custodia-labs/shelf/internal/normalisers/book"
	"github.com/custodia-labs/shelf/internal/parsers"
	"github.com/custodia-labs/shelf/internal/parsers/archive"
	"github.com/custodia-labs/shelf/internal/parsers/html"
	"github.com/custodia-labs/shelf/internal/parsers/markup"
)

// bootstrap wires concrete adapters into the core services.
func bootstrap(opts cli.Options) (*cli.Services, error) {
	cfg, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}

	s, err := config.Load(cfg)
	if err != nil {
		return &cli.Services{Config: cfg, Settings: s}, err
	}
	if opts.Ephemeral {
		s.Storage.Backend = config.BackendMemory
	}

	books, records, closeStore, err := openStorage(s.Storage)
	if err != nil {
		return &cli.Services{Config: cfg, Settings: s}, err
	}
	logger.Debug("Storage backend: %s", s.Storage.Backend)

	coordinator := services.NewCoordinator(
		newParserRegistry(s.Ingest.MaxDocumentBytes),
		book.New(book.Options{TitleFallback: s.Ingest.TitleFallback}),
		books,
		records,
		services.CoordinatorOptions{Workers: s.Ingest.Workers},
	)

	bookService := services.NewBookService(books, records,
		exporters.NewJSON(),
		exporters.NewMarkdown(),
		exporters.NewPDF(s.Export.PDFFont),
	)

	fetcher := fetch.New(fetch.Options{
		Timeout:   s.Fetch.Timeout,
		Rate:      s.Fetch.Rate,
		Burst:     1,
		UserAgent: s.Fetch.UserAgent,
		MaxBytes:  s.Ingest.MaxDocumentBytes,
	})

	maxBytes := s.Ingest.MaxDocumentBytes
	svc := &cli.Services{
		Config:   cfg,
		Settings: s,
		Ingest:   coordinator,
		Books:    bookService,
		Fetcher:  fetcher,
		ReadFile: func(path string) (*domain.RawDocument, error) {
			return inbox.ReadFile(path, maxBytes, "cli")
		},
		OpenDir: func(dir string) driven.Connector {
			return inbox.New(dir, maxBytes)
		},
	}

	var inboxConn driven.Connector
	if s.Inbox.Dir != "" {
		inboxConn = inbox.New(s.Inbox.Dir, maxBytes)
		svc.Inbox = inboxConn
	}

	svc.Close = func() error {
		var errs []error
		if inboxConn != nil {
			errs = append(errs, inboxConn.Close())
		}
		errs = append(errs, closeStore())
		return errors.Join(errs...)
	}

	return svc, nil
}

// newParserRegistry registers every parser. Markup is the fallback for
// content no parser claims.
func newParserRegistry(maxBytes int64) *parsers.Registry {
	fallback := markup.New()
	registry := parsers.NewRegistry(fallback, maxBytes)
	registry.Register(fallback)
	registry.Register(html.New())
	registry.Register(archive.New(registry, maxBytes))
	return registry
}

// openStorage opens the configured backend.
func openStorage(s config.StorageSettings) (driven.BookStore, driven.RecordLog, func() error, error) {
	switch s.Backend {
	case config.BackendMemory:
		return memory.NewBookStore(), memory.NewRecordLog(), func() error { return nil }, nil

	case config.BackendSQLite:
		store, err := sqlite.NewStore(s.DataDir, s.Timeout)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store.BookStore(), store.RecordLog(), store.Close, nil

	case config.BackendFilesystem:
		books, err := filesystem.NewBookStore(s.BooksDir, s.Timeout)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening book store: %w", err)
		}
		records, err := filesystem.NewRecordLog(s.LogsDir)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening record log: %w", err)
		}
		return books, records, records.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidInput, s.Backend)
	}
}

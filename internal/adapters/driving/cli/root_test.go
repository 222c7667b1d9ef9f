package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/shelf/internal/adapters/driven/config/file"
	"github.com/custodia-labs/shelf/internal/adapters/driven/storage/memory"
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

const sampleBook = `<book><title>Test</title><section label="ch1">Hello</section></book>`

// testEnv is a fully wired in-memory application.
type testEnv struct {
	coordinator *services.Coordinator
	books       *services.BookService
	config      *file.ConfigStore
}

// newTestServices wires the real pipeline over memory stores and installs
// it as the CLI's ports for the duration of the test.
func newTestServices(t *testing.T) *testEnv {
	t.Helper()

	fallback := markup.New()
	registry := parsers.NewRegistry(fallback, 0)
	registry.Register(fallback)
	registry.Register(html.New())
	registry.Register(archive.New(registry, 0))

	store := memory.NewBookStore()
	records := memory.NewRecordLog()
	coordinator := services.NewCoordinator(registry, book.New(book.Options{TitleFallback: true}),
		store, records, services.CoordinatorOptions{})
	bookSvc := services.NewBookService(store, records,
		exporters.NewJSON(), exporters.NewMarkdown(), exporters.NewPDF(""))

	cfg, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)

	saved := Services{
		Config: configStore, Settings: settings, Ingest: ingestService, Books: bookService,
		Fetcher: fetcher, Inbox: inboxConnector, ReadFile: readFile, OpenDir: openDir, Close: closeServices,
	}
	apply(&Services{
		Config:   cfg,
		Settings: config.Defaults(),
		Ingest:   coordinator,
		Books:    bookSvc,
		Fetcher:  fetch.New(fetch.Options{}),
		ReadFile: func(path string) (*domain.RawDocument, error) {
			return inbox.ReadFile(path, 0, "cli")
		},
		OpenDir: func(dir string) driven.Connector {
			return inbox.New(dir, 0)
		},
	})
	resetFlags()
	logger.SetOutput(io.Discard)

	t.Cleanup(func() {
		apply(&saved)
		resetFlags()
		logger.SetOutput(os.Stderr)
	})

	return &testEnv{coordinator: coordinator, books: bookSvc, config: cfg}
}

// clearServices removes every port for the duration of the test.
func clearServices(t *testing.T) {
	t.Helper()
	saved := Services{
		Config: configStore, Settings: settings, Ingest: ingestService, Books: bookService,
		Fetcher: fetcher, Inbox: inboxConnector, ReadFile: readFile, OpenDir: openDir, Close: closeServices,
	}
	apply(&Services{Settings: config.Defaults()})
	resetFlags()
	t.Cleanup(func() { apply(&saved) })
}

// resetFlags restores flag variables that persist between executions.
func resetFlags() {
	flagVerbose, flagLogFormat, flagConfigDir, flagEphemeral = false, "", "", false
	ingestURLs, ingestOverwrite, ingestJSON = nil, false, false
	bookJSON, bookExportFormat, bookExportOutput = false, "md", ""
	recordsLimit, recordsJSON = 20, false
	serveAddr, serveInbox, serveMCPAddr = "", "", ""
	mcpServeAddr = ""
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLIContext(t, context.Background(), args...)
}

func runCLIContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags()
	}()

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "shelf", rootCmd.Use)
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}

	for _, want := range []string{"serve", "ingest", "book", "records", "mcp", "config", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_UnknownLogFormat(t *testing.T) {
	newTestServices(t)

	_, err := runCLI(t, "--log-format", "xml", "version")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown log format "xml"`)
}

func TestRootCmd_Bootstrap(t *testing.T) {
	env := newTestServices(t)
	t.Cleanup(func() { bootstrap = nil })

	var got Options
	calls := 0
	bootstrap = func(opts Options) (*Services, error) {
		calls++
		got = opts
		return &Services{
			Config:   env.config,
			Settings: config.Defaults(),
			Ingest:   env.coordinator,
			Books:    env.books,
		}, nil
	}

	out, err := runCLI(t, "--ephemeral", "--config-dir", "/tmp/shelf", "book", "list")

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, Options{ConfigDir: "/tmp/shelf", Ephemeral: true}, got)
	assert.Contains(t, out, "No books stored.")
}

func TestRootCmd_BootstrapSkippedForVersion(t *testing.T) {
	newTestServices(t)
	t.Cleanup(func() { bootstrap = nil })

	bootstrap = func(Options) (*Services, error) {
		return nil, errors.New("should not be called")
	}

	_, err := runCLI(t, "version")
	assert.NoError(t, err)
}

func TestRootCmd_BootstrapError(t *testing.T) {
	env := newTestServices(t)
	t.Cleanup(func() { bootstrap = nil })

	bootstrap = func(Options) (*Services, error) {
		return &Services{Config: env.config}, domain.ErrInvalidInput
	}

	_, err := runCLI(t, "book", "list")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Config commands still work so the file can be repaired.
	out, err := runCLI(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "server.addr")
}

func TestRootCmd_TeardownClosesServices(t *testing.T) {
	env := newTestServices(t)
	t.Cleanup(func() { bootstrap = nil })

	closed := 0
	bootstrap = func(Options) (*Services, error) {
		return &Services{
			Config:   env.config,
			Settings: config.Defaults(),
			Ingest:   env.coordinator,
			Books:    env.books,
			Close: func() error {
				closed++
				return nil
			},
		}, nil
	}

	_, err := runCLI(t, "records")
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
}

// Package cli provides the command line interface for Shelf.
//
// Commands reach the core through package-level ports that are wired once
// per run by the Bootstrap function passed to Execute. Tests replace the
// ports directly.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/shelf/internal/config"
	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
	"github.com/custodia-labs/shelf/internal/core/ports/driving"
	"github.com/custodia-labs/shelf/internal/logger"
)

// version is set at build time via Execute.
var version = "dev"

// Wired ports, set by the bootstrap or by tests.
var (
	ingestService  driving.IngestService
	bookService    driving.BookService
	fetcher        driven.Fetcher
	inboxConnector driven.Connector
	configStore    driven.ConfigStore
	settings       = config.Defaults()
	readFile       func(path string) (*domain.RawDocument, error)
	openDir        func(dir string) driven.Connector
	closeServices  func() error
)

// Global flags.
var (
	flagVerbose   bool
	flagLogFormat string
	flagConfigDir string
	flagEphemeral bool
)

// skipBootstrap marks commands that never touch the services.
const skipBootstrap = "skip-bootstrap"

// Options carries the global flags into the bootstrap.
type Options struct {
	// ConfigDir overrides the configuration directory.
	ConfigDir string

	// Ephemeral keeps books and records in memory.
	Ephemeral bool
}

// Services are the wired ports handed to commands.
type Services struct {
	Config   driven.ConfigStore
	Settings config.Settings
	Ingest   driving.IngestService
	Books    driving.BookService
	Fetcher  driven.Fetcher

	// Inbox is nil when inbox.dir is not configured.
	Inbox driven.Connector

	// ReadFile loads a local book file.
	ReadFile func(path string) (*domain.RawDocument, error)

	// OpenDir returns a connector that scans a local directory.
	OpenDir func(dir string) driven.Connector

	// Close releases stores and connectors.
	Close func() error
}

// Bootstrap wires the application for one command run. When it fails after
// opening the configuration it should still return Services with Config
// set so the config commands can repair the file.
type Bootstrap func(opts Options) (*Services, error)

var bootstrap Bootstrap

var rootCmd = &cobra.Command{
	Use:   "shelf",
	Short: "Book ingestion service",
	Long: `Shelf ingests book documents (FB2, XML and HTML), normalises them into
titled sections and stores them for retrieval and export.

Run 'shelf serve' to start the HTTP API on :8080, or use 'shelf ingest'
to load files and URLs from the command line.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&flagLogFormat, "log-format", "", "log format: text or json (overrides log.format)")
	pf.StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default ~/.shelf)")
	pf.BoolVar(&flagEphemeral, "ephemeral", false, "keep books and records in memory only")
}

// Execute runs the root command with the given build version and wiring.
func Execute(ver string, boot Bootstrap) error {
	if ver != "" {
		version = ver
	}
	bootstrap = boot
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(flagVerbose)

	if cmd.Annotations[skipBootstrap] == "" && bootstrap != nil {
		svc, err := bootstrap(Options{ConfigDir: flagConfigDir, Ephemeral: flagEphemeral})
		switch {
		case err != nil && svc != nil && svc.Config != nil && isConfigCmd(cmd):
			logger.Warn("Configuration is invalid: %v", err)
			configStore = svc.Config
		case err != nil:
			return err
		default:
			apply(svc)
		}
	}

	format := settings.Log.Format
	if flagLogFormat != "" {
		format = flagLogFormat
	}
	switch format {
	case logger.FormatText, logger.FormatJSON:
		logger.SetFormat(format)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	return err
}

func apply(svc *Services) {
	configStore = svc.Config
	settings = svc.Settings
	ingestService = svc.Ingest
	bookService = svc.Books
	fetcher = svc.Fetcher
	inboxConnector = svc.Inbox
	readFile = svc.ReadFile
	openDir = svc.OpenDir
	closeServices = svc.Close
}

func isConfigCmd(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == configCmd {
			return true
		}
	}
	return false
}

var (
	errIngestNotConfigured = errors.New("ingest service not configured")
	errBooksNotConfigured  = errors.New("book service not configured")
	errConfigNotConfigured = errors.New("config store not configured")
)

// Package config resolves typed service settings from a ConfigStore.
//
// Every key has a default, so an empty config file yields a working
// service. Values come from the TOML file or SHELF_* environment
// variables (see the file adapter).
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
)

// Storage backends.
const (
	BackendFilesystem = "filesystem"
	BackendSQLite     = "sqlite"
	BackendMemory     = "memory"
)

// Settings is the resolved service configuration.
type Settings struct {
	Server  ServerSettings
	Storage StorageSettings
	Ingest  IngestSettings
	Inbox   InboxSettings
	Fetch   FetchSettings
	Export  ExportSettings
	MCP     MCPSettings
	Log     LogSettings
}

// ServerSettings configures the HTTP front-end.
type ServerSettings struct {
	Addr      string
	RateLimit float64 // ingest requests per second, 0 disables
	Burst     int
}

// StorageSettings selects and locates the book store.
type StorageSettings struct {
	Backend  string
	BooksDir string
	LogsDir  string
	DataDir  string
	Timeout  time.Duration
}

// IngestSettings configures the coordinator.
type IngestSettings struct {
	Workers          int
	MaxDocumentBytes int64
	TitleFallback    bool
}

// InboxSettings configures the inbox watcher. An empty Dir disables it.
type InboxSettings struct {
	Dir string
}

// FetchSettings configures the URL fetch connector.
type FetchSettings struct {
	Timeout   time.Duration
	Rate      float64 // requests per second
	UserAgent string
}

// ExportSettings configures book exporters.
type ExportSettings struct {
	PDFFont string // TTF used for PDF output; empty uses the core cp1252 font
}

// MCPSettings configures the MCP adapter. An empty Addr keeps it on stdio
// only.
type MCPSettings struct {
	Addr string
}

// LogSettings configures the logger.
type LogSettings struct {
	Format string
}

// Key describes one configuration key.
type Key struct {
	Name        string
	Default     string
	Description string
}

// Keys lists every recognised key with its default.
var Keys = []Key{
	{"server.addr", ":8080", "HTTP listen address"},
	{"server.rate_limit", "20", "ingest requests per second (0 disables)"},
	{"server.burst", "40", "ingest request burst"},
	{"storage.backend", BackendFilesystem, "filesystem, sqlite or memory"},
	{"storage.books_dir", "books", "directory for book files (filesystem backend)"},
	{"storage.logs_dir", "logs", "directory for the ingestion record log (filesystem backend)"},
	{"storage.data_dir", "data", "directory for shelf.db (sqlite backend)"},
	{"storage.timeout", "10s", "bound on each store operation"},
	{"ingest.workers", "4", "parallel ingestions in batch mode"},
	{"ingest.max_document_bytes", "52428800", "largest accepted document"},
	{"ingest.title_fallback", "true", "use the source id when a book has no title"},
	{"inbox.dir", "", "directory watched for new books (empty disables)"},
	{"fetch.timeout", "30s", "URL fetch timeout"},
	{"fetch.rate", "1", "URL fetches per second"},
	{"fetch.user_agent", "shelf/1.0", "User-Agent for URL fetches"},
	{"export.pdf_font", "", "TTF font for PDF exports (empty uses Helvetica)"},
	{"mcp.addr", "", "MCP streamable HTTP address for serve (empty disables)"},
	{"log.format", "text", "text or json"},
}

// Defaults returns the settings used when no key is configured.
func Defaults() Settings {
	return Settings{
		Server: ServerSettings{
			Addr:      ":8080",
			RateLimit: 20,
			Burst:     40,
		},
		Storage: StorageSettings{
			Backend:  BackendFilesystem,
			BooksDir: "books",
			LogsDir:  "logs",
			DataDir:  "data",
			Timeout:  10 * time.Second,
		},
		Ingest: IngestSettings{
			Workers:          4,
			MaxDocumentBytes: 50 << 20,
			TitleFallback:    true,
		},
		Fetch: FetchSettings{
			Timeout:   30 * time.Second,
			Rate:      1,
			UserAgent: "shelf/1.0",
		},
		Log: LogSettings{
			Format: "text",
		},
	}
}

// Load overlays configured values on the defaults and validates the result.
func Load(store driven.ConfigStore) (Settings, error) {
	s := Defaults()
	if store == nil {
		return s, nil
	}

	var errs []error
	str := func(key string, dst *string) {
		if _, ok := store.Get(key); ok {
			*dst = strings.TrimSpace(store.GetString(key))
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := store.Get(key); ok {
			n, err := toInt(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := store.Get(key); ok {
			f, err := toFloat(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := store.Get(key); ok {
			b, err := toBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := store.Get(key); ok {
			d, err := toDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("server.addr", &s.Server.Addr)
	float("server.rate_limit", &s.Server.RateLimit)
	integer("server.burst", &s.Server.Burst)

	str("storage.backend", &s.Storage.Backend)
	str("storage.books_dir", &s.Storage.BooksDir)
	str("storage.logs_dir", &s.Storage.LogsDir)
	str("storage.data_dir", &s.Storage.DataDir)
	duration("storage.timeout", &s.Storage.Timeout)

	integer("ingest.workers", &s.Ingest.Workers)
	maxBytes := int(s.Ingest.MaxDocumentBytes)
	integer("ingest.max_document_bytes", &maxBytes)
	s.Ingest.MaxDocumentBytes = int64(maxBytes)
	boolean("ingest.title_fallback", &s.Ingest.TitleFallback)

	str("inbox.dir", &s.Inbox.Dir)

	duration("fetch.timeout", &s.Fetch.Timeout)
	float("fetch.rate", &s.Fetch.Rate)
	str("fetch.user_agent", &s.Fetch.UserAgent)

	str("export.pdf_font", &s.Export.PDFFont)
	str("mcp.addr", &s.MCP.Addr)

	str("log.format", &s.Log.Format)

	if len(errs) > 0 {
		return s, fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return s, s.Validate()
}

// Validate checks the settings are usable.
func (s Settings) Validate() error {
	var errs []error
	switch s.Storage.Backend {
	case BackendFilesystem, BackendSQLite, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q", s.Storage.Backend))
	}
	if s.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr: must not be empty"))
	}
	if s.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit: must not be negative"))
	}
	if s.Ingest.Workers < 1 {
		errs = append(errs, errors.New("ingest.workers: must be at least 1"))
	}
	if s.Ingest.MaxDocumentBytes < 1 {
		errs = append(errs, errors.New("ingest.max_document_bytes: must be positive"))
	}
	if s.Storage.Timeout < 0 {
		errs = append(errs, errors.New("storage.timeout: must not be negative"))
	}
	if s.Fetch.Rate <= 0 {
		errs = append(errs, errors.New("fetch.rate: must be positive"))
	}
	switch s.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", s.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// Values returns the effective value of every key as a string, keyed by
// name.
func (s Settings) Values() map[string]string {
	return map[string]string{
		"server.addr":               s.Server.Addr,
		"server.rate_limit":         strconv.FormatFloat(s.Server.RateLimit, 'f', -1, 64),
		"server.burst":              strconv.Itoa(s.Server.Burst),
		"storage.backend":           s.Storage.Backend,
		"storage.books_dir":         s.Storage.BooksDir,
		"storage.logs_dir":          s.Storage.LogsDir,
		"storage.data_dir":          s.Storage.DataDir,
		"storage.timeout":           s.Storage.Timeout.String(),
		"ingest.workers":            strconv.Itoa(s.Ingest.Workers),
		"ingest.max_document_bytes": strconv.FormatInt(s.Ingest.MaxDocumentBytes, 10),
		"ingest.title_fallback":     strconv.FormatBool(s.Ingest.TitleFallback),
		"inbox.dir":                 s.Inbox.Dir,
		"fetch.timeout":             s.Fetch.Timeout.String(),
		"fetch.rate":                strconv.FormatFloat(s.Fetch.Rate, 'f', -1, 64),
		"fetch.user_agent":          s.Fetch.UserAgent,
		"export.pdf_font":           s.Export.PDFFont,
		"mcp.addr":                  s.MCP.Addr,
		"log.format":                s.Log.Format,
	}
}

// IsKey reports whether name is a recognised key.
func IsKey(name string) bool {
	for _, k := range Keys {
		if k.Name == name {
			return true
		}
	}
	return false
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		return int(x), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(x))
	default:
		return 0, fmt.Errorf("not an integer: %v", v)
	}
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(x))
	default:
		return false, fmt.Errorf("not a boolean: %v", v)
	}
}

// toDuration accepts Go duration strings or whole seconds.
func toDuration(v any) (time.Duration, error) {
	switch x := v.(type) {
	case string:
		x = strings.TrimSpace(x)
		if n, err := strconv.Atoi(x); err == nil {
			return time.Duration(n) * time.Second, nil
		}
		return time.ParseDuration(x)
	case int64:
		return time.Duration(x) * time.Second, nil
	case int:
		return time.Duration(x) * time.Second, nil
	case float64:
		return time.Duration(x * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("not a duration: %v", v)
	}
}

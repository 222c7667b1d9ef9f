package driven

import (
	"context"

	"github.com/custodia-labs/shelf/internal/core/domain"
)

// Parser converts raw book-format bytes into a ParsedTree.
// Each parser handles specific MIME types and file extensions.
//
// Parsers must tolerate malformed markup: unparsable fragments are skipped
// and recorded as diagnostics. Parse fails with domain.ErrParse only when
// the bytes cannot be decoded or no structure at all is recoverable.
type Parser interface {
	// Name returns the parser name for logging and diagnostics.
	Name() string

	// SupportedMIMETypes returns the MIME types this parser handles.
	SupportedMIMETypes() []string

	// SupportedExtensions returns source extensions (with leading dot).
	SupportedExtensions() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific parsers should return 50-89.
	// Fallback parsers should return 1-9.
	Priority() int

	// Parse decodes and parses a raw document.
	Parse(ctx context.Context, raw *domain.RawDocument) (*domain.ParsedTree, error)
}

// ParserRegistry selects the appropriate parser for a document.
// It maintains a priority-ordered list of parsers and dispatches
// based on MIME type and source extension.
type ParserRegistry interface {
	// Parse parses a raw document using the best matching parser.
	// Selection priority: MIME-specific > extension-specific > fallback.
	Parse(ctx context.Context, raw *domain.RawDocument) (*domain.ParsedTree, error)

	// Register adds a parser to the registry.
	Register(parser Parser)

	// SupportedMIMETypes returns all MIME types that can be parsed.
	SupportedMIMETypes() []string
}

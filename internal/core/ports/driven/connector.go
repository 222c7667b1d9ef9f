package driven

import (
	"context"

	"github.com/custodia-labs/shelf/internal/core/domain"
)

// Connector delivers raw documents from a location into the pipeline.
type Connector interface {
	// Type returns the connector type identifier.
	Type() string

	// Scan emits every document currently available, then closes both channels.
	Scan(ctx context.Context) (<-chan domain.RawDocument, <-chan error)

	// Watch emits documents as they arrive until ctx is cancelled.
	Watch(ctx context.Context) (<-chan domain.RawDocument, error)

	// Close releases resources.
	Close() error
}

// Fetcher retrieves a single raw document from a URL.
type Fetcher interface {
	// Fetch downloads the document. The SourceID of the result is derived
	// from the response file name or the URL path.
	Fetch(ctx context.Context, url string) (*domain.RawDocument, error)
}

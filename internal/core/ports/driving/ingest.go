package driving

import (
	"context"

	"github.com/custodia-labs/shelf/internal/core/domain"
)

// IngestService coordinates the parse, normalise and store pipeline.
type IngestService interface {
	// Ingest runs one document through the pipeline. The result is always
	// non-nil and carries the terminal state. On failure the returned error
	// wraps the typed sentinel (domain.ErrParse, domain.ErrNormalization,
	// domain.ErrDuplicateID or domain.ErrStorage).
	Ingest(ctx context.Context, raw domain.RawDocument, opts domain.IngestOptions) (*domain.IngestResult, error)

	// IngestAll ingests documents concurrently, each in its own pipeline.
	// Results are returned in input order.
	IngestAll(ctx context.Context, raws []domain.RawDocument, opts domain.IngestOptions) []domain.IngestResult

	// Status returns the state of an in-flight or recently finished ingestion.
	Status(ctx context.Context, ticket string) (*domain.IngestResult, error)

	// Stats returns cumulative counters.
	Stats(ctx context.Context) domain.IngestStats
}

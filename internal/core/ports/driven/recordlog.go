package driven

import (
	"context"

	"github.com/custodia-labs/shelf/internal/core/domain"
)

// RecordLog is the append-only ingestion record stream under the logs area.
//
// Logging is best-effort: Append never fails the caller. Failures are
// counted and reported through Dropped.
type RecordLog interface {
	// Append writes one record.
	Append(ctx context.Context, record domain.IngestionRecord)

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]domain.IngestionRecord, error)

	// Dropped returns the number of records that could not be written.
	Dropped() int64
}

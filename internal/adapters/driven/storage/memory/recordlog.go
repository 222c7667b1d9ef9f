package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
)

// Ensure RecordLog implements the interface.
var _ driven.RecordLog = (*RecordLog)(nil)

// RecordLog keeps ingestion records in a slice.
type RecordLog struct {
	mu      sync.RWMutex
	records []domain.IngestionRecord
}

// NewRecordLog creates an empty record log.
func NewRecordLog() *RecordLog {
	return &RecordLog{}
}

// Append adds a record.
func (l *RecordLog) Append(_ context.Context, record domain.IngestionRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
}

// Recent returns up to limit records, newest first. A non-positive limit
// returns every record.
func (l *RecordLog) Recent(_ context.Context, limit int) ([]domain.IngestionRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.IngestionRecord, 0, len(l.records))
	for i := len(l.records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, l.records[i])
	}
	return out, nil
}

// Dropped always returns zero; appends to memory cannot fail.
func (l *RecordLog) Dropped() int64 {
	return 0
}

// Len returns the number of records.
func (l *RecordLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

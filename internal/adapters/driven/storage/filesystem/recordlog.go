package filesystem

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/shelf/internal/adapters/driven/storage"
	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
	"github.com/custodia-labs/shelf/internal/logger"
)

// Ensure RecordLog implements the interface.
var _ driven.RecordLog = (*RecordLog)(nil)

// LogFile is the record log file name inside the logs directory.
const LogFile = "ingest.jsonl"

// maxLineBytes bounds one record line when reading the log back.
const maxLineBytes = 1 << 20

// RecordLog appends ingestion records to a JSON lines file.
type RecordLog struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	dropped atomic.Int64
}

// NewRecordLog creates the logs directory and opens the log for appending.
func NewRecordLog(dir string) (*RecordLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating logs directory: %w", err)
	}
	path := filepath.Join(dir, LogFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening record log: %w", err)
	}
	return &RecordLog{path: path, file: f}, nil
}

// Path returns the log file path.
func (l *RecordLog) Path() string {
	return l.path
}

// Append writes one record as a line and syncs it. Failures are counted
// and logged, never returned.
func (l *RecordLog) Append(_ context.Context, record domain.IngestionRecord) {
	line, err := json.Marshal(record)
	if err != nil {
		l.drop(record, err)
		return
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		l.drop(record, os.ErrClosed)
		return
	}
	if _, err := l.file.Write(line); err != nil {
		l.drop(record, err)
		return
	}
	if err := l.file.Sync(); err != nil {
		l.drop(record, err)
	}
}

func (l *RecordLog) drop(record domain.IngestionRecord, err error) {
	l.dropped.Add(1)
	logger.Warn("dropped ingestion record %s for %s: %v", record.ID, record.SourceID, err)
}

// Recent returns up to limit records, newest first. Malformed lines are
// skipped. A non-positive limit returns every record.
func (l *RecordLog) Recent(ctx context.Context, limit int) ([]domain.IngestionRecord, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.IngestionRecord{}, nil
	}
	if err != nil {
		return nil, storage.Fail("opening record log", err)
	}
	defer f.Close()

	var records []domain.IngestionRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		var rec domain.IngestionRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, storage.Fail("reading record log", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, storage.Fail("reading record log", err)
	}

	out := make([]domain.IngestionRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, records[i])
	}
	return out, nil
}

// Dropped returns the number of records that could not be written.
func (l *RecordLog) Dropped() int64 {
	return l.dropped.Load()
}

// Close closes the log file. Later appends are dropped.
func (l *RecordLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

package domain

import "time"

// Outcome is the result category of one ingestion attempt.
type Outcome string

// Ingestion outcomes.
const (
	OutcomeSuccess            Outcome = "success"
	OutcomeParseError         Outcome = "parse-error"
	OutcomeNormalizationError Outcome = "normalization-error"
	OutcomeStorageError       Outcome = "storage-error"
)

// IsValid returns true if the outcome is recognised.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSuccess, OutcomeParseError, OutcomeNormalizationError, OutcomeStorageError:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (o Outcome) String() string {
	return string(o)
}

// IngestionRecord is the append-only log entry for one ingestion attempt.
type IngestionRecord struct {
	// ID uniquely identifies the record (the ingestion ticket).
	ID string `json:"id"`

	// SourceID is the identifier of the ingested RawDocument.
	SourceID string `json:"source_id"`

	// BookID is the derived book identifier, empty if ingestion failed
	// before one was assigned.
	BookID string `json:"book_id,omitempty"`

	// Outcome is the terminal result.
	Outcome Outcome `json:"outcome"`

	// Timestamp is when the attempt finished (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Message is an optional diagnostic message.
	Message string `json:"message,omitempty"`

	// Diagnostics is the number of parser recoveries applied.
	Diagnostics int `json:"diagnostics,omitempty"`

	// Duration is how long the attempt took.
	Duration time.Duration `json:"duration_ns"`
}

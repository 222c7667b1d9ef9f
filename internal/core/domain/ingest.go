package domain

// IngestState is a stage of the per-document ingestion state machine.
type IngestState string

// Ingestion states. Succeeded and Failed are terminal.
const (
	StateReceived    IngestState = "received"
	StateParsing     IngestState = "parsing"
	StateNormalizing IngestState = "normalizing"
	StateStoring     IngestState = "storing"
	StateSucceeded   IngestState = "succeeded"
	StateFailed      IngestState = "failed"
)

// IsTerminal returns true for Succeeded and Failed.
func (s IngestState) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// String returns the string representation.
func (s IngestState) String() string {
	return string(s)
}

// IngestOptions controls a single ingestion.
type IngestOptions struct {
	// Overwrite replaces an existing book with the same derived ID.
	Overwrite bool
}

// IngestResult is the well-typed outcome of one ingestion call.
type IngestResult struct {
	// Ticket identifies the ingestion attempt; it equals the record ID.
	Ticket string `json:"ticket"`

	// SourceID is the identifier of the ingested RawDocument.
	SourceID string `json:"source_id"`

	// BookID is the identifier of the stored book on success.
	BookID string `json:"id,omitempty"`

	// State is the current (or terminal) state.
	State IngestState `json:"state"`

	// Outcome is set once State is terminal.
	Outcome Outcome `json:"outcome,omitempty"`

	// Message carries the failure reason.
	Message string `json:"message,omitempty"`

	// Diagnostics lists parser recoveries.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Succeeded reports whether the ingestion reached StateSucceeded.
func (r *IngestResult) Succeeded() bool {
	return r != nil && r.State == StateSucceeded
}

// IngestStats are cumulative coordinator counters.
type IngestStats struct {
	Received       int64             `json:"received"`
	Succeeded      int64             `json:"succeeded"`
	Failed         map[Outcome]int64 `json:"failed"`
	InFlight       int64             `json:"in_flight"`
	DroppedRecords int64             `json:"dropped_records"`
}

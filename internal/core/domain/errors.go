package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no parser or exporter handles a format.
	ErrUnsupportedType = errors.New("unsupported type")

	// Ingestion Errors.

	// ErrParse indicates input bytes could not be decoded or contain no
	// recoverable markup structure.
	ErrParse = errors.New("parse error")

	// ErrNormalization indicates a required structural anchor is missing
	// and no fallback is configured.
	ErrNormalization = errors.New("normalization error")

	// ErrDuplicateID indicates a book with the same identifier already
	// exists and overwrite was not requested.
	ErrDuplicateID = errors.New("duplicate book id")

	// ErrStorage indicates an I/O failure in the store, including timeouts.
	ErrStorage = errors.New("storage error")
)

// OutcomeFor maps an ingestion error to its record outcome.
// A nil error is a success. Errors outside the ingestion taxonomy are
// reported as storage errors, since only the store performs I/O.
func OutcomeFor(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrParse), errors.Is(err, ErrInvalidInput):
		return OutcomeParseError
	case errors.Is(err, ErrNormalization):
		return OutcomeNormalizationError
	default:
		return OutcomeStorageError
	}
}

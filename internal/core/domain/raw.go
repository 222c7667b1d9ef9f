package domain

import (
	"path"
	"strings"
)

// RawDocument represents unparsed book-format bytes handed to the service.
// It is the input of an ingestion and is never modified once ingested.
type RawDocument struct {
	// SourceID identifies where the bytes came from (usually a file name).
	SourceID string

	// MIMEType is the declared content type (e.g., "application/x-fictionbook+xml").
	// May be empty, in which case the parser is chosen from the source extension.
	MIMEType string

	// Charset is the declared character encoding. Empty means sniff.
	Charset string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains connector-specific key-value pairs.
	Metadata map[string]string
}

// Extension returns the lower-cased file extension of the source identifier,
// including the leading dot. ".fb2.zip" style double extensions report ".zip".
func (r *RawDocument) Extension() string {
	return strings.ToLower(path.Ext(strings.ReplaceAll(r.SourceID, `\`, "/")))
}

// Validate checks the document can enter the pipeline.
func (r *RawDocument) Validate() error {
	if strings.TrimSpace(r.SourceID) == "" {
		return ErrInvalidInput
	}
	return nil
}

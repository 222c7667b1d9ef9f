package exporters

import (
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
)

var _ driven.Exporter = (*JSON)(nil)

// JSON exports a book as indented JSON.
type JSON struct{}

// NewJSON creates a JSON exporter.
func NewJSON() *JSON {
	return &JSON{}
}

// Format returns the format name.
func (e *JSON) Format() string { return "json" }

// ContentType returns the MIME type.
func (e *JSON) ContentType() string { return "application/json" }

// Extension returns the file extension.
func (e *JSON) Extension() string { return ".json" }

// Export renders the book.
func (e *JSON) Export(book *domain.Book) ([]byte, error) {
	if book == nil {
		return nil, domain.ErrInvalidInput
	}
	data, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal book: %w", err)
	}
	return append(data, '\n'), nil
}

package exporters

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
)

var _ driven.Exporter = (*PDF)(nil)

// PDF exports a book as an A4 PDF.
//
// Without a font file the core Helvetica font is used and text is mapped
// to cp1252, so characters outside that code page are lost. Configure a
// TrueType font with Unicode coverage for Cyrillic or other scripts.
type PDF struct {
	fontPath string
}

// NewPDF creates a PDF exporter. fontPath is an optional TrueType font.
func NewPDF(fontPath string) *PDF {
	return &PDF{fontPath: fontPath}
}

// Format returns the format name.
func (e *PDF) Format() string { return "pdf" }

// ContentType returns the MIME type.
func (e *PDF) ContentType() string { return "application/pdf" }

// Extension returns the file extension.
func (e *PDF) Extension() string { return ".pdf" }

// Export renders the book.
func (e *PDF) Export(book *domain.Book) ([]byte, error) {
	if book == nil {
		return nil, domain.ErrInvalidInput
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)

	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if e.fontPath != "" {
		family = "book"
		pdf.AddUTF8Font(family, "", e.fontPath)
		pdf.AddUTF8Font(family, "B", e.fontPath)
		pdf.AddUTF8Font(family, "I", e.fontPath)
		tr = func(s string) string { return s }
	}

	pdf.SetTitle(book.Title, true)
	if author := book.Metadata["author"]; author != "" {
		pdf.SetAuthor(author, true)
	}
	pdf.SetCreator("shelf", false)
	pdf.SetCreationDate(book.IngestedAt)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(family, "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 8, fmt.Sprintf("%d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})
	pdf.AddPage()

	pdf.SetFont(family, "B", 18)
	pdf.MultiCell(0, 8, tr(book.Title), "", "L", false)
	pdf.Ln(3)

	if fields := visibleMetadata(book.Metadata); len(fields) > 0 {
		pdf.SetFont(family, "I", 9)
		pdf.SetTextColor(100, 100, 100)
		for _, f := range fields {
			pdf.MultiCell(0, 5, tr(f[0]+": "+f[1]), "", "L", false)
		}
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(4)
	}
	if ann := book.Metadata["annotation"]; ann != "" {
		pdf.SetFont(family, "I", 10)
		for _, p := range paragraphs(ann) {
			pdf.MultiCell(0, 5, tr(p), "", "L", false)
		}
		pdf.Ln(4)
	}

	for _, s := range book.Sections {
		pdf.Ln(4)
		pdf.SetFont(family, "B", 14)
		pdf.MultiCell(0, 7, tr(s.Label), "", "L", false)
		pdf.Ln(2)
		pdf.SetFont(family, "", 11)
		for _, p := range paragraphs(s.Body) {
			pdf.MultiCell(0, 5.5, tr(p), "", "J", false)
			pdf.Ln(1.5)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}

package exporters

import (
	"fmt"
	"html"
	"sort"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
)

var _ driven.Exporter = (*Markdown)(nil)

// hiddenMetadata are bookkeeping keys left out of rendered exports.
var hiddenMetadata = map[string]bool{
	"format":         true,
	"encoding":       true,
	"source":         true,
	"title_fallback": true,
	"annotation":     true,
}

// Markdown exports a book as CommonMark.
type Markdown struct{}

// NewMarkdown creates a markdown exporter.
func NewMarkdown() *Markdown {
	return &Markdown{}
}

// Format returns the format name.
func (e *Markdown) Format() string { return "md" }

// ContentType returns the MIME type.
func (e *Markdown) ContentType() string { return "text/markdown; charset=utf-8" }

// Extension returns the file extension.
func (e *Markdown) Extension() string { return ".md" }

// Export renders the book.
func (e *Markdown) Export(book *domain.Book) ([]byte, error) {
	if book == nil {
		return nil, domain.ErrInvalidInput
	}
	md, err := htmltomarkdown.ConvertString(renderHTML(book))
	if err != nil {
		return nil, fmt.Errorf("converting book to markdown: %w", err)
	}
	return []byte(strings.TrimSpace(md) + "\n"), nil
}

// renderHTML lays the book out as an HTML fragment.
func renderHTML(book *domain.Book) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "<h1>%s</h1>\n", html.EscapeString(book.Title))

	if fields := visibleMetadata(book.Metadata); len(fields) > 0 {
		sb.WriteString("<ul>\n")
		for _, f := range fields {
			fmt.Fprintf(&sb, "<li><strong>%s:</strong> %s</li>\n",
				html.EscapeString(f[0]), html.EscapeString(f[1]))
		}
		sb.WriteString("</ul>\n")
	}
	if ann := book.Metadata["annotation"]; ann != "" {
		sb.WriteString("<blockquote>\n")
		writeParagraphs(&sb, ann)
		sb.WriteString("</blockquote>\n")
	}

	for _, s := range book.Sections {
		fmt.Fprintf(&sb, "<h2>%s</h2>\n", html.EscapeString(s.Label))
		writeParagraphs(&sb, s.Body)
	}
	return sb.String()
}

func writeParagraphs(sb *strings.Builder, body string) {
	for _, p := range paragraphs(body) {
		fmt.Fprintf(sb, "<p>%s</p>\n", html.EscapeString(p))
	}
}

// paragraphs splits a section body on newlines, dropping blank lines.
func paragraphs(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// visibleMetadata returns key/value pairs sorted by key.
func visibleMetadata(meta map[string]string) [][2]string {
	keys := make([]string, 0, len(meta))
	for k, v := range meta {
		if !hiddenMetadata[k] && strings.TrimSpace(v) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([][2]string, len(keys))
	for i, k := range keys {
		out[i] = [2]string{k, meta[k]}
	}
	return out
}

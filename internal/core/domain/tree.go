package domain

import (
	"fmt"

	"golang.org/x/net/html"
)

// Format identifies the markup dialect a parser recognised.
type Format string

// Recognised formats.
const (
	// FormatFB2 is FictionBook 2 XML.
	FormatFB2 Format = "fb2"

	// FormatXML is generic book XML (e.g. <book><title>..</title></book>).
	FormatXML Format = "xml"

	// FormatHTML is HTML or XHTML.
	FormatHTML Format = "html"
)

// Diagnostic records one defect the parser recovered from.
type Diagnostic struct {
	// Offset is the byte offset in the decoded input where the defect was seen.
	Offset int `json:"offset"`

	// Message describes the defect and the recovery applied.
	Message string `json:"message"`
}

// String implements fmt.Stringer.
func (d Diagnostic) String() string {
	return fmt.Sprintf("offset %d: %s", d.Offset, d.Message)
}

// ParsedTree is the hierarchical node structure produced by a parser.
// It is owned by the ingestion call that created it and is discarded
// once normalisation completes.
type ParsedTree struct {
	// Root is the document node. Its descendants are element, text and
	// comment nodes; element and attribute names are lower-cased.
	Root *html.Node

	// Format is the dialect detected from the root element.
	Format Format

	// Encoding is the name of the character encoding used to decode the input.
	Encoding string

	// Diagnostics lists the recoveries applied while parsing.
	Diagnostics []Diagnostic
}

// RootElement returns the first element child of the document node.
func (t *ParsedTree) RootElement() *html.Node {
	if t == nil || t.Root == nil {
		return nil
	}
	if t.Root.Type == html.ElementNode {
		return t.Root
	}
	for c := t.Root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

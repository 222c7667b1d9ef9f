package html

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
	"github.com/custodia-labs/shelf/internal/parsers/decode"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles HTML documents.
type Parser struct{}

// New creates a new HTML parser.
func New() *Parser {
	return &Parser{}
}

// Name returns the parser name.
func (p *Parser) Name() string {
	return "html"
}

// SupportedMIMETypes returns the MIME types this parser handles.
func (p *Parser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// SupportedExtensions returns the file extensions this parser handles.
func (p *Parser) SupportedExtensions() []string {
	return []string{".html", ".htm", ".xhtml"}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 60
}

// Sniff reports whether content starts like an HTML document.
func (p *Parser) Sniff(content []byte) bool {
	head := content
	if len(head) > 512 {
		head = head[:512]
	}
	head = bytes.ToLower(bytes.TrimSpace(bytes.TrimPrefix(head, []byte{0xEF, 0xBB, 0xBF})))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

// Parse decodes raw and runs HTML5 tree construction over it.
func (p *Parser) Parse(_ context.Context, raw *domain.RawDocument) (*domain.ParsedTree, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text, err := decode.Decode(raw)
	if err != nil {
		return nil, err
	}

	seen := scanTags(text.Text)
	if len(seen) == 0 {
		return nil, fmt.Errorf("%w: no elements found in %s", domain.ErrParse, raw.SourceID)
	}

	root, err := html.Parse(strings.NewReader(text.Text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}

	var diags []domain.Diagnostic
	for _, name := range []string{"html", "head", "body"} {
		if !seen[name] {
			diags = append(diags, domain.Diagnostic{Message: fmt.Sprintf("missing <%s> synthesized", name)})
		}
	}

	return &domain.ParsedTree{
		Root:        root,
		Format:      domain.FormatHTML,
		Encoding:    text.Encoding,
		Diagnostics: diags,
	}, nil
}

// scanTags returns the set of start tag names present in the source.
func scanTags(text string) map[string]bool {
	seen := make(map[string]bool)
	z := html.NewTokenizer(strings.NewReader(text))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return seen
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			seen[string(name)] = true
		}
	}
}

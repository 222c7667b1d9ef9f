package markup

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
	"github.com/custodia-labs/shelf/internal/parsers/decode"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// unresolvedEntity matches an entity reference the tokenizer left as text.
var unresolvedEntity = regexp.MustCompile(`&(#[0-9]+|#[xX][0-9a-fA-F]+|[A-Za-z][A-Za-z0-9]*);`)

// Parser builds element trees from FB2 and generic XML book markup.
type Parser struct{}

// New creates a new markup parser.
func New() *Parser {
	return &Parser{}
}

// Name returns the parser name.
func (p *Parser) Name() string {
	return "markup"
}

// SupportedMIMETypes returns the MIME types this parser handles.
func (p *Parser) SupportedMIMETypes() []string {
	return []string{
		"application/x-fictionbook+xml",
		"application/x-fictionbook",
		"application/fb2",
		"application/xml",
		"text/xml",
	}
}

// SupportedExtensions returns the file extensions this parser handles.
func (p *Parser) SupportedExtensions() []string {
	return []string{".fb2", ".xml"}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 50
}

// Parse decodes raw and builds a tree, recovering from malformed markup.
// Each recovery is reported as a diagnostic. Input with no recoverable
// element fails with domain.ErrParse.
func (p *Parser) Parse(_ context.Context, raw *domain.RawDocument) (*domain.ParsedTree, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text, err := decode.Decode(raw)
	if err != nil {
		return nil, err
	}

	b := newBuilder()
	b.run(text.Text)
	if b.elements == 0 {
		return nil, fmt.Errorf("%w: no elements found in %s", domain.ErrParse, raw.SourceID)
	}

	tree := &domain.ParsedTree{
		Root:        b.doc,
		Encoding:    text.Encoding,
		Diagnostics: b.diags,
	}
	tree.Format = detectFormat(tree.RootElement())
	return tree, nil
}

func detectFormat(root *html.Node) domain.Format {
	if root == nil {
		return domain.FormatXML
	}
	switch root.Data {
	case "fictionbook":
		return domain.FormatFB2
	case "html":
		return domain.FormatHTML
	default:
		return domain.FormatXML
	}
}

// builder assembles an html.Node tree from tokens using a stack of open
// elements. stack[0] is always the document node.
type builder struct {
	doc      *html.Node
	stack    []*html.Node
	diags    []domain.Diagnostic
	elements int
	offset   int
}

func newBuilder() *builder {
	doc := &html.Node{Type: html.DocumentNode}
	return &builder{doc: doc, stack: []*html.Node{doc}}
}

func (b *builder) run(text string) {
	z := html.NewTokenizer(strings.NewReader(text))
	z.AllowCDATA(true)

	for {
		tt := z.Next()
		start := b.offset
		raw := z.Raw()
		b.offset += len(raw)

		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != nil && err != io.EOF {
				b.diag(start, "tokenizer error: "+err.Error())
			}
			if strings.HasPrefix(strings.TrimSpace(string(raw)), "<") {
				b.diag(start, "truncated markup at end of input skipped")
			}
			b.closeAll()
			return

		case html.TextToken:
			// Text unescapes in place, so copy the raw bytes first.
			rawText := string(raw)
			b.text(start, rawText, string(z.Text()))

		case html.StartTagToken:
			tok := z.Token()
			// Book markup has no raw-text elements; <title> holds markup.
			z.NextIsNotRawText()
			b.push(b.element(tok))

		case html.SelfClosingTagToken:
			b.top().AppendChild(b.element(z.Token()))

		case html.EndTagToken:
			name, _ := z.TagName()
			b.end(start, string(name))

		case html.CommentToken, html.DoctypeToken:
			// Comments, processing instructions and doctypes carry no book content.
		}
	}
}

func (b *builder) element(tok html.Token) *html.Node {
	b.elements++
	attrs := make([]html.Attribute, 0, len(tok.Attr))
	for _, a := range tok.Attr {
		key := a.Key
		if a.Namespace != "" {
			key = a.Namespace + ":" + a.Key
		}
		attrs = append(attrs, html.Attribute{Key: strings.ToLower(key), Val: a.Val})
	}
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tok.Data,
		DataAtom: atom.Lookup([]byte(tok.Data)),
		Attr:     attrs,
	}
}

func (b *builder) top() *html.Node {
	return b.stack[len(b.stack)-1]
}

func (b *builder) push(n *html.Node) {
	b.top().AppendChild(n)
	b.stack = append(b.stack, n)
}

func (b *builder) text(offset int, raw, text string) {
	if len(b.stack) == 1 {
		if strings.TrimSpace(text) != "" {
			b.diag(offset, "text outside the root element skipped")
		}
		return
	}
	if strings.Contains(raw, "&") {
		for _, ref := range unresolvedEntity.FindAllString(raw, -1) {
			if html.UnescapeString(ref) == ref {
				b.diag(offset, fmt.Sprintf("unresolved entity %s kept as text", ref))
			}
		}
	}
	if last := b.top().LastChild; last != nil && last.Type == html.TextNode {
		last.Data += text
		return
	}
	b.top().AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

func (b *builder) end(offset int, name string) {
	for i := len(b.stack) - 1; i > 0; i-- {
		if b.stack[i].Data != name {
			continue
		}
		for j := len(b.stack) - 1; j > i; j-- {
			b.diag(offset, fmt.Sprintf("element <%s> closed by </%s>", b.stack[j].Data, name))
		}
		b.stack = b.stack[:i]
		return
	}
	b.diag(offset, fmt.Sprintf("stray end tag </%s> skipped", name))
}

func (b *builder) closeAll() {
	for j := len(b.stack) - 1; j > 0; j-- {
		b.diag(b.offset, fmt.Sprintf("unclosed element <%s> closed at end of input", b.stack[j].Data))
	}
	b.stack = b.stack[:1]
}

func (b *builder) diag(offset int, msg string) {
	b.diags = append(b.diags, domain.Diagnostic{Offset: offset, Message: msg})
}

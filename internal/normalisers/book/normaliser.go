package book

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Options configures normalisation.
type Options struct {
	// TitleFallback uses the source identifier as the title when the
	// document has none, instead of failing.
	TitleFallback bool
}

// Normaliser builds books from parsed trees.
type Normaliser struct {
	opts Options
	now  func() time.Time
}

// New creates a new book normaliser.
func New(opts Options) *Normaliser {
	return &Normaliser{opts: opts, now: time.Now}
}

// profile extracts the parts of a book from one document shape.
type profile interface {
	title(doc *goquery.Document) string
	sections(doc *goquery.Document) []domain.Section
	metadata(doc *goquery.Document) map[string]string
}

// Normalise converts tree into a book identified by sourceID. Missing
// title anchors fail with domain.ErrNormalization unless TitleFallback is
// set.
func (n *Normaliser) Normalise(_ context.Context, tree *domain.ParsedTree, sourceID string) (*domain.Book, error) {
	if tree == nil || tree.Root == nil {
		return nil, fmt.Errorf("%w: empty tree", domain.ErrNormalization)
	}

	doc := goquery.NewDocumentFromNode(tree.Root)

	var p profile = genericProfile{}
	if tree.Format == domain.FormatFB2 {
		p = fb2Profile{}
	}

	meta := p.metadata(doc)
	if meta == nil {
		meta = make(map[string]string)
	}

	title := p.title(doc)
	if title == "" {
		if !n.opts.TitleFallback {
			return nil, fmt.Errorf("%w: no title found in %s", domain.ErrNormalization, sourceID)
		}
		title = sourceID
		meta["title_fallback"] = "true"
	}

	meta["format"] = string(tree.Format)
	meta["encoding"] = tree.Encoding
	meta["source"] = sourceID

	sections := p.sections(doc)
	if sections == nil {
		sections = []domain.Section{}
	}

	return &domain.Book{
		ID:         domain.BookID(sourceID),
		SourceID:   sourceID,
		Title:      title,
		Sections:   sections,
		Metadata:   meta,
		IngestedAt: n.now().UTC(),
	}, nil
}

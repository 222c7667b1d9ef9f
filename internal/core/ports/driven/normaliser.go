package driven

import (
	"context"

	"github.com/custodia-labs/shelf/internal/core/domain"
)

// Normaliser transforms a parsed tree into the canonical Book form.
type Normaliser interface {
	// Normalise walks the tree and builds a Book whose identifier is
	// derived from sourceID. Section order follows document order.
	// Fails with domain.ErrNormalization when no title anchor exists
	// and no fallback is configured.
	Normalise(ctx context.Context, tree *domain.ParsedTree, sourceID string) (*domain.Book, error)
}

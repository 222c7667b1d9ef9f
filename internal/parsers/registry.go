package parsers

import (
	"context"
	"fmt"
	"mime"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ParserRegistry = (*Registry)(nil)

// Sniffer is implemented by parsers that can recognise their format from
// the leading bytes of a document.
type Sniffer interface {
	Sniff(content []byte) bool
}

// Registry dispatches raw documents to the best matching parser.
type Registry struct {
	mu       sync.RWMutex
	parsers  []driven.Parser
	fallback driven.Parser
	maxBytes int64
}

// NewRegistry creates a registry. fallback handles documents no registered
// parser claims; it may be nil. maxBytes <= 0 disables the size limit.
func NewRegistry(fallback driven.Parser, maxBytes int64) *Registry {
	return &Registry{
		fallback: fallback,
		maxBytes: maxBytes,
	}
}

// Register adds a parser. Parsers are kept ordered by descending priority;
// equal priorities keep registration order.
func (r *Registry) Register(p driven.Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers = append(r.parsers, p)
	sort.SliceStable(r.parsers, func(i, j int) bool {
		return r.parsers[i].Priority() > r.parsers[j].Priority()
	})
}

// Parse parses raw with the selected parser.
func (r *Registry) Parse(ctx context.Context, raw *domain.RawDocument) (*domain.ParsedTree, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	if r.maxBytes > 0 && int64(len(raw.Content)) > r.maxBytes {
		return nil, fmt.Errorf("%w: document is %d bytes, limit is %d", domain.ErrParse, len(raw.Content), r.maxBytes)
	}

	p := r.Select(raw)
	if p == nil {
		return nil, fmt.Errorf("%w: %w: %s", domain.ErrParse, domain.ErrUnsupportedType, raw.SourceID)
	}
	return p.Parse(ctx, raw)
}

// Select returns the parser that would handle raw, or nil.
func (r *Registry) Select(raw *domain.RawDocument) driven.Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if mt := mediaType(raw.MIMEType); mt != "" {
		for _, p := range r.parsers {
			if contains(p.SupportedMIMETypes(), mt) {
				return p
			}
		}
	}

	if ext := raw.Extension(); ext != "" {
		for _, p := range r.parsers {
			if contains(p.SupportedExtensions(), ext) {
				return p
			}
		}
	}

	for _, p := range r.parsers {
		if s, ok := p.(Sniffer); ok && s.Sniff(raw.Content) {
			return p
		}
	}

	return r.fallback
}

// SupportedMIMETypes returns every MIME type a registered parser handles.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var types []string
	for _, p := range r.parsers {
		for _, mt := range p.SupportedMIMETypes() {
			if !seen[mt] {
				seen[mt] = true
				types = append(types, mt)
			}
		}
	}
	return types
}

// mediaType strips parameters such as charset from a MIME type.
func mediaType(s string) string {
	if s == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(s)
	if err != nil {
		mt, _, _ = strings.Cut(s, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

package parsers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/parsers/html"
	"github.com/custodia-labs/shelf/internal/parsers/markup"
)

type stubParser struct {
	name     string
	mimes    []string
	exts     []string
	priority int
	calls    int
}

func (s *stubParser) Name() string                  { return s.name }
func (s *stubParser) SupportedMIMETypes() []string  { return s.mimes }
func (s *stubParser) SupportedExtensions() []string { return s.exts }
func (s *stubParser) Priority() int                 { return s.priority }

func (s *stubParser) Parse(_ context.Context, _ *domain.RawDocument) (*domain.ParsedTree, error) {
	s.calls++
	return &domain.ParsedTree{Format: domain.Format(s.name)}, nil
}

func newDefaultRegistry() *Registry {
	fallback := markup.New()
	r := NewRegistry(fallback, 1024)
	r.Register(fallback)
	r.Register(html.New())
	return r
}

func TestRegistry_SelectByMIMEType(t *testing.T) {
	r := newDefaultRegistry()

	p := r.Select(&domain.RawDocument{SourceID: "x.fb2", MIMEType: "text/html; charset=utf-8"})
	require.NotNil(t, p)
	assert.Equal(t, "html", p.Name())
}

func TestRegistry_SelectByExtension(t *testing.T) {
	r := newDefaultRegistry()

	tests := []struct {
		source string
		want   string
	}{
		{"book.fb2", "markup"},
		{"Book.XML", "markup"},
		{"page.htm", "html"},
		{"dir/page.html", "html"},
		{"unknown.bin", "markup"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			p := r.Select(&domain.RawDocument{SourceID: tt.source})
			require.NotNil(t, p)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}

func TestRegistry_SelectBySniffing(t *testing.T) {
	r := newDefaultRegistry()

	p := r.Select(&domain.RawDocument{SourceID: "upload", Content: []byte("<!DOCTYPE html><p>x")})
	require.NotNil(t, p)
	assert.Equal(t, "html", p.Name())
}

func TestRegistry_PriorityOrdering(t *testing.T) {
	low := &stubParser{name: "low", exts: []string{".xml"}, priority: 10}
	high := &stubParser{name: "high", exts: []string{".xml"}, priority: 80}
	r := NewRegistry(nil, 0)
	r.Register(low)
	r.Register(high)

	tree, err := r.Parse(context.Background(), &domain.RawDocument{SourceID: "a.xml", Content: []byte("<a/>")})
	require.NoError(t, err)
	assert.Equal(t, domain.Format("high"), tree.Format)
	assert.Equal(t, 1, high.calls)
	assert.Equal(t, 0, low.calls)
}

func TestRegistry_NoParser(t *testing.T) {
	r := NewRegistry(nil, 0)

	_, err := r.Parse(context.Background(), &domain.RawDocument{SourceID: "a.bin", Content: []byte("x")})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrParse)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_RejectsOversizedInput(t *testing.T) {
	r := newDefaultRegistry()

	_, err := r.Parse(context.Background(), &domain.RawDocument{SourceID: "big.xml", Content: make([]byte, 2048)})
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestRegistry_RejectsEmptySource(t *testing.T) {
	r := newDefaultRegistry()

	_, err := r.Parse(context.Background(), &domain.RawDocument{SourceID: " ", Content: []byte("<a/>")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = r.Parse(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRegistry_SupportedMIMETypes(t *testing.T) {
	r := newDefaultRegistry()

	types := r.SupportedMIMETypes()
	assert.Contains(t, types, "text/html")
	assert.Contains(t, types, "application/x-fictionbook+xml")
}

func TestRegistry_ParsesWithMarkup(t *testing.T) {
	r := newDefaultRegistry()

	tree, err := r.Parse(context.Background(), &domain.RawDocument{
		SourceID: "t1",
		Content:  []byte(`<book><title>Test</title><section label="ch1">Hello</section></book>`),
	})
	require.NoError(t, err)
	assert.Equal(t, "book", tree.RootElement().Data)
}

package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/shelf/internal/core/domain"
)

func TestParser_Metadata(t *testing.T) {
	p := New()
	assert.Equal(t, "html", p.Name())
	assert.Equal(t, 60, p.Priority())
	assert.Contains(t, p.SupportedMIMETypes(), "text/html")
	assert.Equal(t, []string{".html", ".htm", ".xhtml"}, p.SupportedExtensions())
}

func TestParser_Sniff(t *testing.T) {
	p := New()
	assert.True(t, p.Sniff([]byte("  <!DOCTYPE html><html></html>")))
	assert.True(t, p.Sniff([]byte("<HTML lang=en>")))
	assert.False(t, p.Sniff([]byte("<FictionBook>")))
	assert.False(t, p.Sniff(nil))
}

func TestParser_FullDocument(t *testing.T) {
	tree, err := New().Parse(context.Background(), &domain.RawDocument{
		SourceID: "book.html",
		Content:  []byte(`<html lang="en"><head><title>T</title></head><body><h1>One</h1><p>x</p></body></html>`),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.FormatHTML, tree.Format)
	assert.Empty(t, tree.Diagnostics)
	root := tree.RootElement()
	require.NotNil(t, root)
	assert.Equal(t, "html", root.Data)
}

func TestParser_FragmentSynthesizesStructure(t *testing.T) {
	tree, err := New().Parse(context.Background(), &domain.RawDocument{
		SourceID: "frag.html",
		Content:  []byte(`<h1>Title<p>unclosed`),
	})
	require.NoError(t, err)

	assert.Len(t, tree.Diagnostics, 3)
	assert.Equal(t, "html", tree.RootElement().Data)
}

func TestParser_NoElements(t *testing.T) {
	_, err := New().Parse(context.Background(), &domain.RawDocument{
		SourceID: "plain.html",
		Content:  []byte("nothing but text"),
	})
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestParser_MetaCharset(t *testing.T) {
	content := append([]byte(`<html><head><meta charset="windows-1251"></head><body>`), 0xCF, 0xF0, 0xE8)
	content = append(content, []byte(`</body></html>`)...)

	tree, err := New().Parse(context.Background(), &domain.RawDocument{SourceID: "ru.html", Content: content})
	require.NoError(t, err)
	assert.Equal(t, "windows-1251", tree.Encoding)
}

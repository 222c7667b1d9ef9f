package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

var zipMagic = []byte("PK\x03\x04")

// bookExtensions are the archive entries considered books.
var bookExtensions = map[string]bool{
	".fb2":   true,
	".xml":   true,
	".html":  true,
	".htm":   true,
	".xhtml": true,
}

// Parser unpacks zip archives and delegates the entry to another parser.
type Parser struct {
	delegate driven.ParserRegistry
	maxBytes int64
}

// New creates an archive parser. delegate parses the unpacked entry;
// entries larger than maxBytes are rejected (maxBytes <= 0 disables the limit).
func New(delegate driven.ParserRegistry, maxBytes int64) *Parser {
	return &Parser{delegate: delegate, maxBytes: maxBytes}
}

// Name returns the parser name.
func (p *Parser) Name() string {
	return "zip"
}

// SupportedMIMETypes returns the MIME types this parser handles.
func (p *Parser) SupportedMIMETypes() []string {
	return []string{"application/zip", "application/x-zip-compressed"}
}

// SupportedExtensions returns the file extensions this parser handles.
func (p *Parser) SupportedExtensions() []string {
	return []string{".zip"}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 70
}

// Sniff reports whether content starts with a zip local file header.
func (p *Parser) Sniff(content []byte) bool {
	return bytes.HasPrefix(content, zipMagic)
}

// Parse unpacks the first book entry and parses it with the delegate.
func (p *Parser) Parse(ctx context.Context, raw *domain.RawDocument) (*domain.ParsedTree, error) {
	entry, err := p.Unpack(raw)
	if err != nil {
		return nil, err
	}
	return p.delegate.Parse(ctx, entry)
}

// Unpack returns the first book entry of a zip archive as a raw document.
// The entry keeps the archive's source identifier with ".zip" removed when
// that leaves a book extension, so "123.fb2.zip" becomes "123.fb2".
func (p *Parser) Unpack(raw *domain.RawDocument) (*domain.RawDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	zr, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: reading archive %s: %v", domain.ErrParse, raw.SourceID, err)
	}

	for _, f := range zr.File {
		name := path.Base(f.Name)
		if f.FileInfo().IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		if !bookExtensions[strings.ToLower(path.Ext(name))] {
			continue
		}

		data, err := p.read(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s in %s: %v", domain.ErrParse, f.Name, raw.SourceID, err)
		}

		meta := make(map[string]string, len(raw.Metadata)+1)
		for k, v := range raw.Metadata {
			meta[k] = v
		}
		meta["archive_entry"] = f.Name

		return &domain.RawDocument{
			SourceID: entrySource(raw.SourceID, name),
			Content:  data,
			Metadata: meta,
		}, nil
	}

	return nil, fmt.Errorf("%w: %w: no book entry in archive %s", domain.ErrParse, domain.ErrUnsupportedType, raw.SourceID)
}

func (p *Parser) read(f *zip.File) ([]byte, error) {
	if p.maxBytes > 0 && f.UncompressedSize64 > uint64(p.maxBytes) {
		return nil, fmt.Errorf("entry is %d bytes, limit is %d", f.UncompressedSize64, p.maxBytes)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if p.maxBytes > 0 {
		r = io.LimitReader(rc, p.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if p.maxBytes > 0 && int64(len(data)) > p.maxBytes {
		return nil, fmt.Errorf("entry exceeds %d bytes", p.maxBytes)
	}
	return data, nil
}

// entrySource names the unpacked entry after its archive when possible.
func entrySource(archive, entry string) string {
	if strings.EqualFold(path.Ext(archive), ".zip") {
		trimmed := archive[:len(archive)-len(".zip")]
		if bookExtensions[strings.ToLower(path.Ext(trimmed))] {
			return trimmed
		}
	}
	return entry
}

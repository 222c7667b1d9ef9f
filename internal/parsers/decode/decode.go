// Package decode turns raw book bytes into UTF-8 text.
//
// The encoding is chosen in this order: byte order mark, the document's
// declared charset, the charset parameter of its MIME type, the XML
// declaration, valid UTF-8, an HTML <meta> prescan, and finally
// windows-1252.
package decode

import (
	"fmt"
	"mime"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/custodia-labs/shelf/internal/core/domain"
)

// xmlDeclEncoding matches the encoding pseudo-attribute of an XML declaration.
var xmlDeclEncoding = regexp.MustCompile(`^\s*<\?xml[^>]*?encoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)

// Result is decoded document text.
type Result struct {
	// Text is the UTF-8 document text without a byte order mark.
	Text string

	// Encoding is the canonical name of the encoding used.
	Encoding string

	// Declared is true when the encoding came from a BOM or an explicit
	// declaration rather than a guess.
	Declared bool
}

// Decode converts raw.Content to UTF-8. It fails with domain.ErrParse when a
// declared encoding is unknown or the bytes are invalid under it.
func Decode(raw *domain.RawDocument) (*Result, error) {
	content := raw.Content

	enc, name, certain := charset.DetermineEncoding(content, "")
	declared := certain
	if !certain {
		if label := declaredLabel(raw); label != "" {
			enc, name = charset.Lookup(label)
			if enc == nil {
				return nil, fmt.Errorf("%w: unknown encoding %q", domain.ErrParse, label)
			}
			declared = true
		} else if utf8.Valid(content) {
			// DetermineEncoding reports pure ASCII as windows-1252.
			name = "utf-8"
		}
	}

	if name == "utf-8" {
		content = trimUTF8BOM(content)
		if !utf8.Valid(content) {
			return nil, fmt.Errorf("%w: input is not valid utf-8", domain.ErrParse)
		}
		return &Result{Text: string(content), Encoding: name, Declared: declared}, nil
	}

	decoded, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", domain.ErrParse, name, err)
	}
	text := strings.TrimPrefix(string(decoded), "\uFEFF")
	return &Result{Text: text, Encoding: name, Declared: declared}, nil
}

// declaredLabel returns the first explicit charset declaration, if any.
func declaredLabel(raw *domain.RawDocument) string {
	if label := strings.TrimSpace(raw.Charset); label != "" {
		return label
	}
	if raw.MIMEType != "" {
		if _, params, err := mime.ParseMediaType(raw.MIMEType); err == nil {
			if label := strings.TrimSpace(params["charset"]); label != "" {
				return label
			}
		}
	}
	head := raw.Content
	if len(head) > 1024 {
		head = head[:1024]
	}
	if m := xmlDeclEncoding.FindSubmatch(trimUTF8BOM(head)); m != nil {
		return string(m[1])
	}
	return ""
}

func trimUTF8BOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

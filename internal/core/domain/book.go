package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
	"time"
	"unicode"
)

// Book is the canonical representation of an ingested book.
// It is created by a normaliser, immutable afterwards, and owned by the
// store once persisted.
type Book struct {
	// ID is derived from the source identifier and unique within a store.
	ID string `json:"id"`

	// SourceID is the identifier of the RawDocument the book came from.
	SourceID string `json:"source_id"`

	// Title is the human-readable title.
	Title string `json:"title"`

	// Sections are the content sections in document order.
	Sections []Section `json:"sections"`

	// Metadata maps metadata keys to values. Keys are unique.
	Metadata map[string]string `json:"metadata"`

	// IngestedAt is when the book was normalised (UTC).
	IngestedAt time.Time `json:"ingested_at"`
}

// Section is one labelled unit of book content.
type Section struct {
	// Label names the section (chapter title, label attribute, or a
	// positional fallback such as "section-3").
	Label string `json:"label"`

	// Body is the section text. Paragraphs are separated by newlines.
	Body string `json:"body"`
}

// Summary returns the listing view of the book.
func (b *Book) Summary() BookSummary {
	return BookSummary{
		ID:         b.ID,
		SourceID:   b.SourceID,
		Title:      b.Title,
		Sections:   len(b.Sections),
		IngestedAt: b.IngestedAt,
	}
}

// Clone returns a deep copy of the book.
func (b *Book) Clone() *Book {
	c := *b
	if b.Sections != nil {
		c.Sections = make([]Section, len(b.Sections))
		copy(c.Sections, b.Sections)
	}
	if b.Metadata != nil {
		c.Metadata = make(map[string]string, len(b.Metadata))
		for k, v := range b.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// BookSummary is a lightweight listing entry for a stored book.
type BookSummary struct {
	ID         string    `json:"id"`
	SourceID   string    `json:"source_id"`
	Title      string    `json:"title"`
	Sections   int       `json:"sections"`
	IngestedAt time.Time `json:"ingested_at"`
}

// SaveOptions controls BookStore.Save.
type SaveOptions struct {
	// Overwrite replaces an existing book with the same ID instead of
	// failing with ErrDuplicateID.
	Overwrite bool
}

// bookExtensions are stripped from source names when deriving IDs.
var bookExtensions = map[string]bool{
	".fb2":   true,
	".xml":   true,
	".html":  true,
	".htm":   true,
	".xhtml": true,
	".zip":   true,
}

// BookID derives a store identifier from a source identifier.
// The base name is lower-cased, known book extensions are stripped, and
// every run of characters other than letters, digits, '.' and '_' becomes
// a single '-'. When that slug differs from sourceID the first 12 hex
// characters of its SHA-256 are appended, so distinct sources never share
// an ID. Sources that reduce to nothing get a hash-based ID.
func BookID(sourceID string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(sourceID), `\`, "/"))
	name = strings.ToLower(name)
	for {
		ext := path.Ext(name)
		if ext == "" || !bookExtensions[ext] || ext == name {
			break
		}
		name = strings.TrimSuffix(name, ext)
	}

	var sb strings.Builder
	dash := false
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash {
			sb.WriteByte('-')
			dash = true
		}
	}
	slug := strings.Trim(sb.String(), "-.")
	switch slug {
	case sourceID:
		return slug
	case "":
		return "book-" + sourceHash(sourceID)
	default:
		return slug + "-" + sourceHash(sourceID)
	}
}

func sourceHash(sourceID string) string {
	sum := sha256.Sum256([]byte(sourceID))
	return hex.EncodeToString(sum[:])[:12]
}

// ValidBookID reports whether id is safe to use as a storage key.
// IDs produced by BookID always are.
func ValidBookID(id string) bool {
	if id == "" || id == "." || id == ".." || strings.HasPrefix(id, ".") {
		return false
	}
	for _, r := range id {
		if r == '/' || r == '\\' || r == 0 || unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBookID(t *testing.T) {
	tests := []struct {
		name   string
		source string
		slug   string
	}{
		{"fb2 file", "War_and_Peace.fb2", "war_and_peace"},
		{"nested path", "/srv/books/Anna Karenina.xml", "anna-karenina"},
		{"windows path", `C:\books\Dune.html`, "dune"},
		{"double extension", "12345.fb2.zip", "12345"},
		{"punctuation collapsed", "Tom & Jerry!!.fb2", "tom-jerry"},
		{"cyrillic letters kept", "Война и мир.fb2", "война-и-мир"},
		{"surrounding space", "  spaced.xml  ", "spaced"},
		{"upper case", "T1", "t1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := BookID(tt.source)
			assert.True(t, strings.HasPrefix(id, tt.slug+"-"), "got %q", id)
			assert.Len(t, id, len(tt.slug)+1+12)
			assert.True(t, ValidBookID(id))
			assert.Equal(t, id, BookID(tt.source), "derivation must be deterministic")
		})
	}
}

func TestBookID_SlugSourcesKeptAsIs(t *testing.T) {
	for _, source := range []string{"t1", "war_and_peace", "notes.v2", "doc-a", "война-и-мир"} {
		assert.Equal(t, source, BookID(source))
	}
}

func TestBookID_DistinctSourcesNeverCollide(t *testing.T) {
	sources := []string{
		"inbox/a/intro.fb2", "inbox/b/intro.fb2", "intro.fb2", "intro",
		"Doc A", "doc-a", "doc a", "T1", "t1", " t1", "t1.xml",
		"!!!", "???",
	}

	seen := make(map[string]string, len(sources))
	for _, source := range sources {
		id := BookID(source)
		prev, dup := seen[id]
		assert.False(t, dup, "%q and %q share ID %q", prev, source, id)
		seen[id] = source
	}
}

func TestBookID_HashFallback(t *testing.T) {
	id := BookID("!!!")
	assert.True(t, strings.HasPrefix(id, "book-"))
	assert.Len(t, id, len("book-")+12)
	assert.Equal(t, id, BookID("!!!"), "derivation must be deterministic")
	assert.NotEqual(t, id, BookID("???"))
	assert.True(t, ValidBookID(id))
}

func TestValidBookID(t *testing.T) {
	assert.True(t, ValidBookID("t1"))
	assert.True(t, ValidBookID("war_and_peace"))
	assert.False(t, ValidBookID(""))
	assert.False(t, ValidBookID(".."))
	assert.False(t, ValidBookID(".hidden"))
	assert.False(t, ValidBookID("a/b"))
	assert.False(t, ValidBookID(`a\b`))
	assert.False(t, ValidBookID("a b"))
}

func TestBook_Summary(t *testing.T) {
	now := time.Now().UTC()
	book := Book{
		ID:       "t1",
		SourceID: "t1",
		Title:    "Test",
		Sections: []Section{
			{Label: "ch1", Body: "Hello"},
			{Label: "ch2", Body: "World"},
		},
		IngestedAt: now,
	}

	summary := book.Summary()
	assert.Equal(t, "t1", summary.ID)
	assert.Equal(t, "Test", summary.Title)
	assert.Equal(t, 2, summary.Sections)
	assert.Equal(t, now, summary.IngestedAt)
}

func TestBook_Clone(t *testing.T) {
	book := &Book{
		ID:       "t1",
		Sections: []Section{{Label: "ch1", Body: "Hello"}},
		Metadata: map[string]string{"lang": "en"},
	}

	c := book.Clone()
	assert.Equal(t, book, c)

	c.Sections[0].Body = "changed"
	c.Metadata["lang"] = "ru"
	assert.Equal(t, "Hello", book.Sections[0].Body)
	assert.Equal(t, "en", book.Metadata["lang"])
}

package book

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/custodia-labs/shelf/internal/core/domain"
)

// Compiled selectors.
var (
	fb2BookTitle   = cascadia.MustCompile("description title-info book-title")
	fb2TitleInfo   = cascadia.MustCompile("description title-info")
	fb2PublishInfo = cascadia.MustCompile("description publish-info")
	fb2Sections    = cascadia.MustCompile("body section")
)

// fb2Profile reads FictionBook 2 documents.
type fb2Profile struct{}

func (fb2Profile) title(doc *goquery.Document) string {
	return selectionText(doc.FindMatcher(fb2BookTitle))
}

func (fb2Profile) metadata(doc *goquery.Document) map[string]string {
	meta := make(map[string]string)
	info := doc.FindMatcher(fb2TitleInfo).First()

	var authors []string
	info.ChildrenFiltered("author").Each(func(_ int, s *goquery.Selection) {
		if name := authorName(s); name != "" {
			authors = append(authors, name)
		}
	})
	setIfAbsent(meta, "author", strings.Join(authors, ", "))
	setIfAbsent(meta, "genre", joinTexts(info.ChildrenFiltered("genre"), ", "))
	setIfAbsent(meta, "lang", selectionText(info.ChildrenFiltered("lang")))

	date := info.ChildrenFiltered("date").First()
	setIfAbsent(meta, "date", selectionText(date))
	setIfAbsent(meta, "date", date.AttrOr("value", ""))

	seq := info.ChildrenFiltered("sequence").First()
	setIfAbsent(meta, "series", strings.TrimSpace(seq.AttrOr("name", "")))
	setIfAbsent(meta, "series_number", strings.TrimSpace(seq.AttrOr("number", "")))

	if ann := info.ChildrenFiltered("annotation"); ann.Length() > 0 {
		setIfAbsent(meta, "annotation", blockText(ann.Get(0), nil))
	}

	pub := doc.FindMatcher(fb2PublishInfo).First()
	setIfAbsent(meta, "publisher", selectionText(pub.ChildrenFiltered("publisher")))
	setIfAbsent(meta, "isbn", selectionText(pub.ChildrenFiltered("isbn")))
	setIfAbsent(meta, "year", selectionText(pub.ChildrenFiltered("year")))

	return meta
}

// authorName joins first, middle and last names, or falls back to the
// nickname.
func authorName(s *goquery.Selection) string {
	var parts []string
	for _, field := range []string{"first-name", "middle-name", "last-name"} {
		if t := selectionText(s.ChildrenFiltered(field)); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return selectionText(s.ChildrenFiltered("nickname"))
	}
	return strings.Join(parts, " ")
}

func (fb2Profile) sections(doc *goquery.Document) []domain.Section {
	var sections []domain.Section
	doc.FindMatcher(fb2Sections).Each(func(i int, s *goquery.Selection) {
		node := s.Get(0)

		label := ""
		if t := s.ChildrenFiltered("title"); t.Length() > 0 {
			label = inlineText(t.Get(0))
		}
		if label == "" {
			label = strings.TrimSpace(s.AttrOr("id", ""))
		}

		body := blockText(node, func(n *html.Node) bool {
			return (n.Parent == node && n.Data == "title") || n.Data == "section"
		})

		if label == "" && body == "" {
			return
		}
		if label == "" {
			label = fmt.Sprintf("section-%d", i+1)
		}
		sections = append(sections, domain.Section{Label: label, Body: body})
	})
	return sections
}

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
	genericTitles   = cascadia.MustCompile("book-title, title, h1")
	genericMeta     = cascadia.MustCompile("meta[name][content]")
	genericAuthors  = cascadia.MustCompile("author")
	genericSections = cascadia.MustCompile("section, chapter")
	genericBody     = cascadia.MustCompile("body")
)

// genericProfile reads <book> XML, XHTML and HTML documents.
type genericProfile struct{}

func (genericProfile) titleNode(doc *goquery.Document) *html.Node {
	var found *html.Node
	doc.FindMatcher(genericTitles).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if inlineText(s.Get(0)) != "" {
			found = s.Get(0)
			return false
		}
		return true
	})
	return found
}

func (g genericProfile) title(doc *goquery.Document) string {
	if n := g.titleNode(doc); n != nil {
		return inlineText(n)
	}
	return ""
}

func (genericProfile) metadata(doc *goquery.Document) map[string]string {
	meta := make(map[string]string)

	if root := doc.Children().First(); root.Length() > 0 {
		for _, a := range root.Get(0).Attr {
			if a.Key == "xmlns" || strings.HasPrefix(a.Key, "xmlns:") {
				continue
			}
			setIfAbsent(meta, a.Key, strings.TrimSpace(a.Val))
		}
	}

	doc.FindMatcher(genericMeta).Each(func(_ int, s *goquery.Selection) {
		name := strings.ToLower(strings.TrimSpace(s.AttrOr("name", "")))
		setIfAbsent(meta, name, strings.TrimSpace(s.AttrOr("content", "")))
	})

	setIfAbsent(meta, "author", joinTexts(doc.FindMatcher(genericAuthors), ", "))
	return meta
}

func (g genericProfile) sections(doc *goquery.Document) []domain.Section {
	if found := doc.FindMatcher(genericSections); found.Length() > 0 {
		return elementSections(found)
	}

	titleNode := g.titleNode(doc)
	container := doc.FindMatcher(genericBody).First()
	if container.Length() == 0 {
		container = doc.Selection
	}
	skip := func(n *html.Node) bool { return n == titleNode }

	if sections := headingSections(container.Get(0), skip); len(sections) > 0 {
		return sections
	}

	body := blockText(container.Get(0), func(n *html.Node) bool {
		return skip(n) || n.Data == "meta" || n.Data == "author" || n.Data == "book-title"
	})
	if body == "" {
		return nil
	}
	return []domain.Section{{Label: "body", Body: body}}
}

// elementSections builds one section per <section> or <chapter> element.
func elementSections(found *goquery.Selection) []domain.Section {
	var sections []domain.Section
	found.Each(func(i int, s *goquery.Selection) {
		node := s.Get(0)
		heading := headingChild(node)

		label := ""
		for _, attr := range []string{"label", "title", "id"} {
			if v := strings.TrimSpace(s.AttrOr(attr, "")); v != "" {
				label = v
				break
			}
		}
		if label == "" && heading != nil {
			label = inlineText(heading)
		}
		if label == "" {
			label = fmt.Sprintf("section-%d", i+1)
		}

		body := blockText(node, func(n *html.Node) bool {
			return n == heading || n.Data == "section" || n.Data == "chapter"
		})
		sections = append(sections, domain.Section{Label: label, Body: body})
	})
	return sections
}

// headingChild returns the first direct child that is a <title> or an
// h1 to h6 heading.
func headingChild(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "title" || isHeading(c)) {
			return c
		}
	}
	return nil
}

// headingSections splits the text under root at every h1 to h6 heading.
// Text before the first heading becomes a section labelled "body".
func headingSections(root *html.Node, skip func(*html.Node) bool) []domain.Section {
	var sections []domain.Section
	label := ""
	headings := 0

	c := &collector{skip: skip}
	flush := func() {
		body := c.text()
		c.sb.Reset()
		if label == "" && body == "" {
			return
		}
		if label == "" {
			label = "body"
		}
		sections = append(sections, domain.Section{Label: label, Body: body})
	}
	c.heading = func(h *html.Node) {
		flush()
		headings++
		label = inlineText(h)
		if label == "" {
			label = fmt.Sprintf("section-%d", len(sections)+1)
		}
	}
	c.walk(root)
	flush()

	if headings == 0 {
		return nil
	}
	return sections
}

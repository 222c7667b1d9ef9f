package book

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// blockElements start and end a line of text.
var blockElements = map[string]bool{
	"p": true, "v": true, "br": true, "div": true, "li": true, "tr": true,
	"section": true, "chapter": true, "title": true, "subtitle": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "poem": true, "stanza": true,
	"epigraph": true, "cite": true, "text-author": true, "empty-line": true,
	"annotation": true, "article": true, "header": true, "footer": true,
	"table": true, "ul": true, "ol": true, "dl": true, "dt": true, "dd": true,
}

// ignoredElements never contribute text.
var ignoredElements = map[string]bool{
	"script": true, "style": true, "template": true, "noscript": true,
	"binary": true, "head": true,
}

func isHeading(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

// collector writes the text of a subtree with one line per block element.
type collector struct {
	skip    func(*html.Node) bool
	heading func(*html.Node)
	sb      strings.Builder
}

func (c *collector) walk(n *html.Node) {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		switch ch.Type {
		case html.TextNode:
			c.sb.WriteString(ch.Data)
		case html.ElementNode:
			if ignoredElements[ch.Data] {
				continue
			}
			if c.skip != nil && c.skip(ch) {
				// A skipped block still ends the line around it.
				if blockElements[ch.Data] {
					c.sb.WriteByte('\n')
				}
				continue
			}
			if c.heading != nil && isHeading(ch) {
				c.heading(ch)
				continue
			}
			block := blockElements[ch.Data]
			if block {
				c.sb.WriteByte('\n')
			}
			c.walk(ch)
			if block {
				c.sb.WriteByte('\n')
			}
		}
	}
}

// text returns the collected text with whitespace collapsed inside lines
// and empty lines removed.
func (c *collector) text() string {
	return cleanText(c.sb.String())
}

func cleanText(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// blockText returns the text under n, skipping subtrees for which skip
// returns true.
func blockText(n *html.Node, skip func(*html.Node) bool) string {
	c := collector{skip: skip}
	c.walk(n)
	return c.text()
}

// inlineText returns the text under n on a single line.
func inlineText(n *html.Node) string {
	return strings.ReplaceAll(blockText(n, nil), "\n", " ")
}

// selectionText returns the single-line text of the first node in sel.
func selectionText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return inlineText(sel.Get(0))
}

// joinTexts returns the non-empty single-line texts of sel joined by sep.
func joinTexts(sel *goquery.Selection, sep string) string {
	var parts []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := inlineText(s.Get(0)); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, sep)
}

func setIfAbsent(m map[string]string, key, value string) {
	if key == "" || value == "" {
		return
	}
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}

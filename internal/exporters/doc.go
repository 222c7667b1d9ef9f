// Package exporters renders stored books into download formats.
//
// JSON is the stored representation itself. Markdown goes through an HTML
// rendering of the book and html-to-markdown so that markdown syntax in
// the text is escaped. PDF is laid out directly with gofpdf.
package exporters

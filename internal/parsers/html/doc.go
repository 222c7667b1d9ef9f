// Package html parses HTML and XHTML books with the HTML5 tree
// construction algorithm, which recovers from any malformed input.
package html

// Package book normalises parsed book trees into domain.Book values.
//
// Two profiles are supported. FictionBook documents (root <FictionBook>)
// take their title and metadata from <description> and their sections from
// every <section> inside a <body>. Everything else is handled generically:
// the first non-empty <book-title>, <title> or <h1> is the title and
// <section> or <chapter> elements are the sections, falling back to
// heading-delimited sections and finally one "body" section.
package book

// Package archive unpacks zipped books and hands the first book entry back
// to the parser registry. Libraries commonly serve FB2 files as .fb2.zip.
package archive

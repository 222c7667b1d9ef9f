// Package markup parses FB2 and generic XML books into element trees.
//
// Parsing is permissive: unclosed elements are closed at end of input,
// stray end tags are skipped, a mismatched end tag closes the elements
// opened after its match, and unknown entities stay as literal text.
// Every recovery is reported as a domain.Diagnostic with a byte offset
// into the decoded text.
package markup

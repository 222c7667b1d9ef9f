// Package parsers selects a Parser for each raw book.
//
// Parsers register with a Registry at startup. Selection is by MIME type,
// then by source extension, then by content sniffing, in priority order.
// Anything left over goes to the fallback parser.
package parsers

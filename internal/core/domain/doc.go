// Package domain defines the core business entities for Shelf.
//
// This package is part of the hexagonal architecture's innermost layer.
// It defines the fundamental types:
//
//   - RawDocument: Unparsed book-format bytes plus their source identity
//   - ParsedTree: The transient markup tree produced by a parser
//   - Book: The canonical, persisted book representation
//   - IngestionRecord: The durable log entry for one ingestion attempt
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. All other packages depend on
// domain, never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library, golang.org/x/net/html (tree node type)
//   - Cannot Import: Any internal/ package
package domain

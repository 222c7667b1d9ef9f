// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Parser: Decodes raw bytes into a ParsedTree, recovering from malformed markup
//   - ParserRegistry: Selects the appropriate parser for a document
//   - Normaliser: Turns a ParsedTree into a canonical Book
//   - BookStore: Book persistence under the books area
//   - RecordLog: Append-only ingestion records under the logs area
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Exporter: Renders stored books into download formats
//   - Connector: Delivers documents from an inbox directory
//   - Fetcher: Retrieves documents by URL
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, parser or normaliser package
package driven

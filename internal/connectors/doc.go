// Package connectors provides the sources raw book documents come from.
// Each connector turns its source into domain.RawDocument values for the
// ingestion coordinator.
//
//   - inbox watches a local directory and reads files dropped into it
//   - fetch downloads a single document over HTTP
package connectors

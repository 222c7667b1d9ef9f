// Package storage holds helpers shared by the book store backends:
// per-book locking, deadline handling and error classification.
//
// The backends live in subpackages:
//
//   - filesystem: one JSON file per book plus a JSON lines record log (default)
//   - sqlite: a single database file with embedded migrations
//   - memory: process-local maps for tests and ephemeral runs
package storage

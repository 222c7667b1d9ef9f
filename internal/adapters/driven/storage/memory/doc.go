// Package memory provides process-local BookStore and RecordLog
// implementations for tests and ephemeral runs. Nothing survives a restart.
package memory

// Package sqlite stores books and ingestion records in a single SQLite
// database.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One Store provides both
// driven.BookStore and driven.RecordLog over the same connection pool.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// The database file is <data-dir>/shelf.db.
//
// # Thread Safety
//
// All operations are thread-safe. Every write is a single statement, so
// SQLite's busy timeout serialises concurrent writers in WAL mode.
package sqlite

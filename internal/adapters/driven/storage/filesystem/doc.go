// Package filesystem stores books as JSON files and ingestion records as a
// JSON lines log.
//
// Layout:
//
//	<books>/<id>.json      one file per book
//	<logs>/ingest.jsonl    one record per line, append-only
//
// Book files are written to a temporary file in the same directory, synced,
// and renamed into place, so a reader never sees a partial book.
package filesystem

// Package inbox watches a directory for book files.
//
// Scan emits every book already in the directory. Watch uses fsnotify and
// emits a file once it has stopped changing for the settle period, so a
// book that is still being copied in is not read half-written. Hidden
// files, directories and partial downloads (.part, .tmp, .crdownload)
// are ignored.
package inbox

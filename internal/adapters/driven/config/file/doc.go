// Package file provides the TOML-backed driven.ConfigStore.
//
// Keys are flattened to dot notation ("server.addr") in memory and written
// back as nested TOML tables. Environment variables named SHELF_<KEY>, with
// dots replaced by underscores and upper-cased (SHELF_SERVER_ADDR), take
// precedence over the file.
package file

// ABOUTME: Package documentation for the persistence layer.
// ABOUTME: SQLite-backed call audit log and issued-token records.

// Package store provides SQLite persistence for the tool server: an
// append-only audit log of tool invocations and a record of issued API
// tokens.
//
// The concrete implementation is SQLiteStore over modernc.org/sqlite (pure
// Go, no cgo). The schema is created automatically on open; WAL mode is
// enabled for concurrent readers.
package store

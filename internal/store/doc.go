// Package store provides SQLite-backed storage for cache entries.
//
// Entries are stored per cache in a single table keyed by (cache_name, key).
// Keys and values are JSON-encoded; the key encoding also determines the
// partition an entry belongs to. The execution engine reads entries through
// statements compiled by package querysql.
//
// The database runs in WAL mode with a single connection so that writes are
// serialized and readers never see partial rows.
package store

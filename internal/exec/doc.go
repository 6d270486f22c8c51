// Package exec is the reference execution engine for query descriptors.
//
// The engine honors the dispatch contract of package query: it switches
// exhaustively on the descriptor kind and interprets only the payload that
// kind defines.
//
//	Kind            Engine behavior
//	----            ---------------
//	KindSQLFields   runs Clause() against the store; columns when IncludeMetadata()
//	KindFullText    selects ClassName() entries, keeps those matching every term of Clause()
//	KindScan        selects every entry of the cache, applies the filter if present
//	KindSPI         calls the Indexing provider registered for the cache
//
// Because Go methods cannot take type parameters, typed entry points are
// package functions: Entries for full-text and scan descriptors, Custom for
// SPI descriptors. SQL-fields descriptors are run by Engine.Fields.
//
// KEEP PORTABLE:
//
// When a descriptor keeps portable, entry keys and values are decoded with
// json.Decoder.UseNumber, so numbers reach the caller as json.Number instead
// of float64 when the target type leaves them untyped.
//
// Every execution is assigned a UUIDv7 execution id, logged with zap and
// recorded in Prometheus metrics.
package exec

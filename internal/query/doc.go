// Package query builds immutable query descriptors for a distributed cache.
//
// A Facade is bound to one cache context and one serialization mode. It
// exposes one construction operation per query kind, validates the inputs of
// that kind, and returns a Descriptor carrying everything an execution engine
// needs to run the query. The facade executes nothing and performs no I/O.
//
// QUERY KINDS:
//
//	Kind            Payload                      Result rows
//	----            -------                      -----------
//	KindSQLFields   clause, includeMetadata      Row ([]any)
//	KindFullText    className, clause            Entry[K, V]
//	KindScan        filter (nil = match all)     Entry[K, V]
//	KindSPI         none (indexing provider)     caller-declared R
//
// The result row type is fixed by the construction path through the type
// parameter of Descriptor, so callers never inspect rows at runtime to learn
// their shape.
//
// Example:
//
//	f := query.NewFacade[string, Person](people, false)
//
//	fields, err := f.SQLFieldsQuery("select name, age from Person", query.WithMetadata(true))
//	text, err := f.FullTextQuery("Person", "age:30")
//	scan := f.ScanQuery(func(k string, p Person) bool { return p.Age > 18 })
//	spi := query.SPIQuery[Score](f)
//
// DISPATCH CONTRACT:
//
// Engines receive descriptors through the non-generic Spec view and must
// switch exhaustively on Kind:
//
//	switch spec.Kind() {
//	case query.KindSQLFields:  // run Clause(), honor IncludeMetadata()
//	case query.KindFullText:   // search ClassName() values for Clause()
//	case query.KindScan:       // apply the filter, or accept every entry
//	case query.KindSPI:        // delegate to the indexing provider
//	default:                   // reject; Check reports it
//	}
//
// KeepPortable is carried opaquely; only the execution layer interprets it.
//
// CONCURRENCY:
//
// Facade methods read only the facade's immutable fields and allocate a fresh
// descriptor per call, so a Facade is safe for concurrent use without
// locking. Descriptors are never mutated after construction.
package query

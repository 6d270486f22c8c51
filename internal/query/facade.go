package query

import "github.com/roach88/cachequery/internal/cache"

// Facade builds descriptors for one cache context.
//
// K and V are the key and value types of the cache; they type the entries of
// full-text and scan results and the scan predicate.
type Facade[K, V any] struct {
	cache        *cache.Context
	keepPortable bool
}

// NewFacade creates a facade bound to c.
//
// keepPortable is copied into every descriptor the facade builds. NewFacade
// panics if c is nil: a facade without a cache context is a programming
// error, not a runtime condition.
func NewFacade[K, V any](c *cache.Context, keepPortable bool) *Facade[K, V] {
	if c == nil {
		panic("query: NewFacade requires a non-nil cache context")
	}
	return &Facade[K, V]{
		cache:        c,
		keepPortable: keepPortable,
	}
}

// Cache returns the cache context the facade is bound to.
func (f *Facade[K, V]) Cache() *cache.Context { return f.cache }

// KeepPortable returns the serialization mode given at construction.
func (f *Facade[K, V]) KeepPortable() bool { return f.keepPortable }

// SQLFieldsOption configures SQLFieldsQuery.
type SQLFieldsOption func(*sqlFieldsOptions)

type sqlFieldsOptions struct {
	includeMetadata bool
}

// WithMetadata sets whether result rows carry column metadata. Defaults to false.
func WithMetadata(include bool) SQLFieldsOption {
	return func(o *sqlFieldsOptions) {
		o.includeMetadata = include
	}
}

// SQLFieldsQuery builds a SQL-fields query for qry.
//
// The query text is not parsed here; it is handed to the execution engine
// unchanged. Returns an InvalidArgumentError for ParamQuery if qry is empty.
func (f *Facade[K, V]) SQLFieldsQuery(qry string, opts ...SQLFieldsOption) (*Descriptor[Row], error) {
	if qry == "" {
		return nil, missing(ParamQuery)
	}

	var o sqlFieldsOptions
	for _, opt := range opts {
		opt(&o)
	}

	return newDescriptor[Row](f.cache, KindSQLFields, "", qry, nil, o.includeMetadata, f.keepPortable), nil
}

// FullTextQuery builds a full-text query searching values of className for
// search.
//
// Returns an InvalidArgumentError naming the first empty parameter
// (ParamClassName, then ParamSearch).
func (f *Facade[K, V]) FullTextQuery(className, search string) (*Descriptor[Entry[K, V]], error) {
	if className == "" {
		return nil, missing(ParamClassName)
	}
	if search == "" {
		return nil, missing(ParamSearch)
	}

	return newDescriptor[Entry[K, V]](f.cache, KindFullText, className, search, nil, false, f.keepPortable), nil
}

// ScanQuery builds a scan query. A nil filter matches every entry; a non-nil
// filter is stored as given.
func (f *Facade[K, V]) ScanQuery(filter Predicate[K, V]) *Descriptor[Entry[K, V]] {
	var stored any
	if filter != nil {
		stored = filter
	}
	return newDescriptor[Entry[K, V]](f.cache, KindScan, "", "", stored, false, f.keepPortable)
}

// SPIQuery builds a query delegated to the indexing provider of f's cache.
//
// R is the row type the provider produces; it is declared by the caller:
//
//	d := query.SPIQuery[Score](f)
//
// SPIQuery is a function rather than a method because Go methods cannot
// introduce type parameters.
func SPIQuery[R, K, V any](f *Facade[K, V]) *Descriptor[R] {
	return newDescriptor[R](f.cache, KindSPI, "", "", nil, false, f.keepPortable)
}

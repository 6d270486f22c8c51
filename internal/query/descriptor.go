package query

import "github.com/roach88/cachequery/internal/cache"

// Row is one result row of a SQL-fields query, one value per projected column.
type Row = []any

// Entry is one key/value pair returned by full-text and scan queries.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// Predicate filters scanned entries. A nil Predicate matches every entry.
type Predicate[K, V any] func(key K, value V) bool

// Spec is the read-only, non-generic view of a descriptor.
//
// Execution engines dispatch on Spec so they can handle every descriptor
// regardless of its result row type.
type Spec interface {
	Kind() Kind
	ClassName() string
	Clause() string
	HasFilter() bool
	IncludeMetadata() bool
	KeepPortable() bool
	Cache() *cache.Context
	Summary() Summary
}

// Descriptor is an immutable query request whose rows have type R.
//
// All fields are set by the facade in a single constructor call; there are
// no setters. Two descriptors built from equal inputs are field-wise equal but
// distinct values.
//
// Fields outside a kind's payload (clause and className for scan and SPI
// queries, filter for everything but scan) are left zero and must be ignored
// by consumers.
type Descriptor[R any] struct {
	kind            Kind
	className       string
	clause          string
	filter          any // Predicate[K, V] for KindScan, nil otherwise
	includeMetadata bool
	keepPortable    bool
	cache           *cache.Context
}

func newDescriptor[R any](
	c *cache.Context,
	kind Kind,
	className string,
	clause string,
	filter any,
	includeMetadata bool,
	keepPortable bool,
) *Descriptor[R] {
	return &Descriptor[R]{
		kind:            kind,
		className:       className,
		clause:          clause,
		filter:          filter,
		includeMetadata: includeMetadata,
		keepPortable:    keepPortable,
		cache:           c,
	}
}

// Kind returns the query kind.
func (d *Descriptor[R]) Kind() Kind { return d.kind }

func (d *Descriptor[R]) isNil() bool { return d == nil }

// ClassName returns the value type searched by a full-text query.
func (d *Descriptor[R]) ClassName() string { return d.className }

// Clause returns the SQL-fields expression or the full-text search expression.
func (d *Descriptor[R]) Clause() string { return d.clause }

// HasFilter reports whether a scan query carries a predicate.
func (d *Descriptor[R]) HasFilter() bool { return d.filter != nil }

// IncludeMetadata reports whether SQL-fields results carry column metadata.
func (d *Descriptor[R]) IncludeMetadata() bool { return d.includeMetadata }

// KeepPortable returns the serialization mode inherited from the facade.
func (d *Descriptor[R]) KeepPortable() bool { return d.keepPortable }

// Cache returns the cache context the descriptor is bound to. The descriptor
// does not own it.
func (d *Descriptor[R]) Cache() *cache.Context { return d.cache }

// FilterOf returns the predicate of a scan descriptor, or nil when the scan
// matches every entry.
func FilterOf[K, V any](d *Descriptor[Entry[K, V]]) Predicate[K, V] {
	p, _ := d.filter.(Predicate[K, V])
	return p
}

package cache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

const (
	// DefaultPartitions is the partition count used when none is configured.
	DefaultPartitions = 1024

	// MaxPartitions is the upper bound accepted by WithPartitions.
	MaxPartitions = 65000
)

// Context describes one named cache.
//
// Thread-safety: Context is immutable after New returns and safe for
// concurrent use.
type Context struct {
	id         uuid.UUID
	name       string
	partitions int
}

// Option configures a Context at construction.
type Option func(*Context)

// WithPartitions sets the number of partitions entries are spread over.
func WithPartitions(n int) Option {
	return func(c *Context) {
		c.partitions = n
	}
}

// WithID pins the context id. Used by tests and by callers restoring a
// previously issued context.
func WithID(id uuid.UUID) Option {
	return func(c *Context) {
		c.id = id
	}
}

// New creates a cache context for the named cache.
//
// The context receives a time-sortable UUIDv7 id unless WithID is given.
// Returns an error if the name is empty or the partition count is out of
// range.
func New(name string, opts ...Option) (*Context, error) {
	if name == "" {
		return nil, fmt.Errorf("cache name is required")
	}

	c := &Context{
		name:       name,
		partitions: DefaultPartitions,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.partitions < 1 || c.partitions > MaxPartitions {
		return nil, fmt.Errorf("partitions must be in [1, %d], got %d", MaxPartitions, c.partitions)
	}

	if c.id == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate context id: %w", err)
		}
		c.id = id
	}

	return c, nil
}

// MustNew is like New but panics on error. Intended for tests and static setup.
func MustNew(name string, opts ...Option) *Context {
	c, err := New(name, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// ID returns the context id.
func (c *Context) ID() uuid.UUID { return c.id }

// Name returns the cache name.
func (c *Context) Name() string { return c.name }

// Partitions returns the partition count.
func (c *Context) Partitions() int { return c.partitions }

// PartitionOf maps an encoded key to its partition.
// The mapping is stable for a given partition count.
func (c *Context) PartitionOf(key []byte) int {
	return int(xxhash.Sum64(key) % uint64(c.partitions))
}

// String implements fmt.Stringer.
func (c *Context) String() string {
	return fmt.Sprintf("cache(%s, partitions=%d)", c.name, c.partitions)
}

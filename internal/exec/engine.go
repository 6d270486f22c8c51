package exec

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roach88/cachequery/internal/cache"
	"github.com/roach88/cachequery/internal/logger"
	"github.com/roach88/cachequery/internal/query"
	"github.com/roach88/cachequery/internal/querysql"
	"github.com/roach88/cachequery/internal/store"
)

// Indexing is a pluggable provider that executes SPI queries for a cache.
//
// The engine passes no clause, class name or filter: the provider decides
// entirely what the query returns. Every returned item must have the row type
// declared by the SPI descriptor.
type Indexing interface {
	Query(ctx context.Context, c *cache.Context, keepPortable bool) ([]any, error)
}

// IndexingFunc adapts a function to the Indexing interface.
type IndexingFunc func(ctx context.Context, c *cache.Context, keepPortable bool) ([]any, error)

// Query implements Indexing.
func (f IndexingFunc) Query(ctx context.Context, c *cache.Context, keepPortable bool) ([]any, error) {
	return f(ctx, c, keepPortable)
}

// Engine executes descriptors against a store.
//
// Thread-safety: Engine is safe for concurrent use. The provider registry is
// guarded by a RWMutex; the store serializes access to SQLite.
type Engine struct {
	store    *store.Store
	compiler *querysql.SQLCompiler
	log      *zap.Logger
	metrics  *Metrics

	mu        sync.RWMutex
	providers map[string]Indexing
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithMetrics sets the engine metrics. Defaults to none.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an engine reading from st.
func New(st *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:     st,
		compiler:  querysql.NewSQLCompiler(),
		log:       logger.Nop(),
		providers: make(map[string]Indexing),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterIndexing installs the SPI provider for the named cache, replacing
// any previous one.
func (e *Engine) RegisterIndexing(cacheName string, provider Indexing) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.providers[cacheName] = provider
}

// UnregisterIndexing removes the SPI provider for the named cache.
func (e *Engine) UnregisterIndexing(cacheName string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.providers, cacheName)
}

func (e *Engine) provider(cacheName string) (Indexing, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.providers[cacheName]
	return p, ok
}

// read runs stmt and passes its rows to fn. Caller clauses run read-only.
func (e *Engine) read(ctx context.Context, stmt querysql.Statement, fn func(*sql.Rows) error) error {
	if stmt.Passthrough {
		return e.store.QueryReadOnly(ctx, stmt.SQL, stmt.Params, fn)
	}

	rows, err := e.store.Query(ctx, stmt.SQL, stmt.Params...)
	if err != nil {
		return err
	}
	defer rows.Close()

	if err := fn(rows); err != nil {
		return err
	}
	return rows.Err()
}

// validate rejects descriptors that fail query.Check or whose kind is not
// one of want.
func validate(spec query.Spec, want ...query.Kind) error {
	if err := query.Check(spec); err != nil {
		kind := query.KindUnknown
		if spec != nil {
			kind = spec.Kind()
		}
		return newError(ErrCodeInvalidDescriptor, kind, err, "descriptor rejected")
	}

	for _, k := range want {
		if spec.Kind() == k {
			return nil
		}
	}
	return newError(ErrCodeWrongKind, spec.Kind(), nil, "expected one of %v", want)
}

// observe runs fn under a fresh execution id, logging and recording metrics
// for the outcome. fn returns the number of rows produced.
func (e *Engine) observe(ctx context.Context, spec query.Spec, fn func(log *zap.Logger) (int, error)) error {
	kind := query.KindUnknown
	cacheName := ""
	if spec != nil {
		kind = spec.Kind()
		if c := spec.Cache(); c != nil {
			cacheName = c.Name()
		}
	}

	log := e.log.With(
		zap.String("exec_id", uuid.Must(uuid.NewV7()).String()),
		zap.Stringer("kind", kind),
		zap.String("cache", cacheName),
	)

	if err := ctx.Err(); err != nil {
		e.metrics.observe(kind.String(), 0, 0, err)
		log.Warn("query not started", zap.Error(err))
		return err
	}

	log.Debug("executing query")
	start := time.Now()
	rows, err := fn(log)
	elapsed := time.Since(start)

	e.metrics.observe(kind.String(), rows, elapsed, err)
	if err != nil {
		log.Warn("query failed", zap.Duration("duration", elapsed), zap.Error(err))
		return err
	}

	log.Info("query executed", zap.Int("rows", rows), zap.Duration("duration", elapsed))
	return nil
}

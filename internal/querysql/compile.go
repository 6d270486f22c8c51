// Package querysql compiles query descriptors to parameterized SQLite
// statements over the entries table of package store.
package querysql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/cachequery/internal/query"
)

// DefaultTable is the entries table created by package store.
const DefaultTable = "entries"

// ErrDelegated is returned for SPI descriptors: they are executed by an
// indexing provider and have no SQL form.
var ErrDelegated = errors.New("query is delegated to an indexing provider")

// Statement is a compiled statement ready for database/sql.
type Statement struct {
	SQL    string
	Params []any

	// Passthrough marks SQL-fields statements, whose text is the caller's
	// clause unchanged.
	Passthrough bool
}

// SQLCompiler compiles descriptors to parameterized SQL for SQLite.
//
// CRITICAL: entry statements always include ORDER BY so results are
// deterministic.
// CRITICAL: values are parameterized, never interpolated.
type SQLCompiler struct {
	// Table is the entries table name.
	Table string
}

// NewSQLCompiler creates a compiler for the default entries table.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{Table: DefaultTable}
}

// Compile converts a descriptor to a statement.
//
// args are bound as parameters of SQL-fields clauses and rejected for every
// other kind. SPI descriptors return ErrDelegated.
func (c *SQLCompiler) Compile(spec query.Spec, args ...any) (Statement, error) {
	if err := query.Check(spec); err != nil {
		return Statement{}, fmt.Errorf("cannot compile descriptor: %w", err)
	}

	if spec.Kind() != query.KindSQLFields && len(args) > 0 {
		return Statement{}, fmt.Errorf("%s query takes no arguments, got %d", spec.Kind(), len(args))
	}

	switch spec.Kind() {
	case query.KindSQLFields:
		return Statement{SQL: spec.Clause(), Params: args, Passthrough: true}, nil
	case query.KindFullText:
		return c.compileEntries(spec.Cache().Name(), spec.ClassName()), nil
	case query.KindScan:
		return c.compileEntries(spec.Cache().Name(), ""), nil
	case query.KindSPI:
		return Statement{}, ErrDelegated
	default:
		return Statement{}, fmt.Errorf("unsupported query kind: %s", spec.Kind())
	}
}

// compileEntries selects (part, key, value) of one cache, optionally
// restricted to one value class.
func (c *SQLCompiler) compileEntries(cacheName, class string) Statement {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT part, key, value FROM %s WHERE cache_name = ?", c.table())
	params := []any{cacheName}

	if class != "" {
		b.WriteString(" AND value_class = ?")
		params = append(params, class)
	}

	b.WriteString(" ORDER BY ")
	b.WriteString(stableOrderKey())

	return Statement{SQL: b.String(), Params: params}
}

func (c *SQLCompiler) table() string {
	if c.Table == "" {
		return DefaultTable
	}
	return c.Table
}

// stableOrderKey returns the ORDER BY clause for entry statements.
// Uses COLLATE BINARY for deterministic text ordering.
func stableOrderKey() string {
	return "part ASC, key COLLATE BINARY ASC"
}

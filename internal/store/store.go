package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SchemaVersion is the entries layout this package reads and writes. It is
// recorded in PRAGMA user_version when a database is created.
const SchemaVersion = 1

// ErrSchemaTooNew is returned by Open for a database written by a newer
// layout than SchemaVersion.
var ErrSchemaTooNew = errors.New("database schema is newer than this build")

// Store holds cache entries in one SQLite database.
//
// A single connection is kept open, so statements run one at a time.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path, in WAL mode with a 5 second
// busy timeout, and creates the entries table if needed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepare(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func prepare(db *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > SchemaVersion {
		return fmt.Errorf("%w: found version %d, supported %d", ErrSchemaTooNew, version, SchemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if version < SchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Query executes a read statement and returns the resulting rows.
// Callers are responsible for closing the returned rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// QueryReadOnly runs the first statement of query with PRAGMA query_only
// enabled and passes its rows to fn. A statement that would modify the
// database fails with SQLite's readonly error and changes nothing. Text after
// the first statement is not executed.
//
// fn must not call back into the store.
func (s *Store) QueryReadOnly(ctx context.Context, query string, args []any, fn func(*sql.Rows) error) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return fmt.Errorf("enable query_only: %w", err)
	}
	defer func() {
		if _, rerr := conn.ExecContext(context.Background(), "PRAGMA query_only = OFF"); rerr != nil {
			// Drop the connection rather than return it to the pool read-only.
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
			err = errors.Join(err, fmt.Errorf("disable query_only: %w", rerr))
		}
	}()

	stmt, err := conn.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	if err := fn(rows); err != nil {
		return err
	}
	return rows.Err()
}

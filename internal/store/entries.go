package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/cachequery/internal/cache"
)

// Record is one stored cache entry in its encoded form.
type Record struct {
	Partition int
	Key       json.RawMessage
	Class     string
	Value     json.RawMessage
}

// EncodeKey returns the stored form of key.
func EncodeKey(key any) ([]byte, error) {
	data, err := json.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("encode key: %w", err)
	}
	return data, nil
}

// Put inserts or replaces the entry for key in cache c.
//
// class names the value type; full-text queries select entries by it. The
// partition is derived from the encoded key.
func (s *Store) Put(ctx context.Context, c *cache.Context, key any, class string, value any) error {
	if class == "" {
		return fmt.Errorf("put %s: value class is required", c.Name())
	}

	keyData, err := EncodeKey(key)
	if err != nil {
		return err
	}
	valueData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (cache_name, key, part, value_class, value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_name, key) DO UPDATE SET
			part = excluded.part,
			value_class = excluded.value_class,
			value = excluded.value
	`, c.Name(), string(keyData), c.PartitionOf(keyData), class, string(valueData))
	if err != nil {
		return fmt.Errorf("put %s: %w", c.Name(), err)
	}
	return nil
}

// Get returns the record for key. The boolean is false if no entry exists.
func (s *Store) Get(ctx context.Context, c *cache.Context, key any) (Record, bool, error) {
	keyData, err := EncodeKey(key)
	if err != nil {
		return Record{}, false, err
	}

	var (
		rec  Record
		k, v string
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT part, key, value_class, value
		FROM entries
		WHERE cache_name = ? AND key = ?
	`, c.Name(), string(keyData)).Scan(&rec.Partition, &k, &rec.Class, &v)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get %s: %w", c.Name(), err)
	}

	rec.Key = json.RawMessage(k)
	rec.Value = json.RawMessage(v)
	return rec, true, nil
}

// Remove deletes the entry for key. Returns false if there was none.
func (s *Store) Remove(ctx context.Context, c *cache.Context, key any) (bool, error) {
	keyData, err := EncodeKey(key)
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM entries WHERE cache_name = ? AND key = ?
	`, c.Name(), string(keyData))
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", c.Name(), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", c.Name(), err)
	}
	return n > 0, nil
}

// Count returns the number of entries in cache c.
func (s *Store) Count(ctx context.Context, c *cache.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM entries WHERE cache_name = ?
	`, c.Name()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.Name(), err)
	}
	return n, nil
}

// ScanRecord reads one row selected as (part, key, value) into a Record.
// Class is left empty; entry statements select by class rather than return it.
func ScanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec  Record
		k, v string
	)
	if err := rows.Scan(&rec.Partition, &k, &v); err != nil {
		return Record{}, fmt.Errorf("scan entry: %w", err)
	}
	rec.Key = json.RawMessage(k)
	rec.Value = json.RawMessage(v)
	return rec, nil
}

// ClassCount is the number of entries of one value class.
type ClassCount struct {
	Class   string
	Entries int
}

// Classes returns per-class entry counts for cache c, ordered by class.
func (s *Store) Classes(ctx context.Context, c *cache.Context) ([]ClassCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT value_class, COUNT(*)
		FROM entries
		WHERE cache_name = ?
		GROUP BY value_class
		ORDER BY value_class COLLATE BINARY ASC
	`, c.Name())
	if err != nil {
		return nil, fmt.Errorf("classes %s: %w", c.Name(), err)
	}
	defer rows.Close()

	counts := []ClassCount{}
	for rows.Next() {
		var cc ClassCount
		if err := rows.Scan(&cc.Class, &cc.Entries); err != nil {
			return nil, fmt.Errorf("classes %s: %w", c.Name(), err)
		}
		counts = append(counts, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("classes %s: %w", c.Name(), err)
	}
	return counts, nil
}

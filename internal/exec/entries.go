package exec

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/roach88/cachequery/internal/query"
	"github.com/roach88/cachequery/internal/store"
)

// Entries runs a full-text or scan descriptor and returns matching entries
// ordered by partition, then key.
func Entries[K, V any](ctx context.Context, e *Engine, d *query.Descriptor[query.Entry[K, V]]) ([]query.Entry[K, V], error) {
	if d == nil {
		return nil, newError(ErrCodeInvalidDescriptor, query.KindUnknown, nil, "descriptor is nil")
	}

	var out []query.Entry[K, V]
	err := e.observe(ctx, d, func(log *zap.Logger) (int, error) {
		if err := validate(d, query.KindFullText, query.KindScan); err != nil {
			return 0, err
		}

		var keep func(raw json.RawMessage, key K, value V) bool
		switch d.Kind() {
		case query.KindFullText:
			m := newTextMatcher(d.Clause())
			keep = func(raw json.RawMessage, _ K, _ V) bool {
				return m.match(raw)
			}
		case query.KindScan:
			filter := query.FilterOf(d)
			keep = func(_ json.RawMessage, key K, value V) bool {
				return filter == nil || filter(key, value)
			}
		}

		stmt, err := e.compiler.Compile(d)
		if err != nil {
			return 0, newError(ErrCodeInvalidDescriptor, d.Kind(), err, "compile")
		}

		out = []query.Entry[K, V]{}
		scanned := 0
		err = e.read(ctx, stmt, func(rows *sql.Rows) error {
			for rows.Next() {
				rec, err := store.ScanRecord(rows)
				if err != nil {
					return newError(ErrCodeStore, d.Kind(), err, "read entry")
				}
				scanned++

				key, err := decode[K](rec.Key, d.KeepPortable())
				if err != nil {
					return newError(ErrCodeDecode, d.Kind(), err, "decode key %s", rec.Key)
				}
				value, err := decode[V](rec.Value, d.KeepPortable())
				if err != nil {
					return newError(ErrCodeDecode, d.Kind(), err, "decode value of key %s", rec.Key)
				}

				if keep(rec.Value, key, value) {
					out = append(out, query.Entry[K, V]{Key: key, Value: value})
				}
			}
			return nil
		})
		if err != nil {
			var ee *Error
			if errors.As(err, &ee) {
				return 0, ee
			}
			return 0, newError(ErrCodeStore, d.Kind(), err, "select entries")
		}

		log.Debug("entries filtered", zap.Int("scanned", scanned), zap.Int("matched", len(out)))
		return len(out), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// decode unmarshals a stored key or value. Keeping portable preserves
// numbers as json.Number wherever T leaves them untyped.
func decode[T any](raw json.RawMessage, keepPortable bool) (T, error) {
	var out T
	dec := json.NewDecoder(bytes.NewReader(raw))
	if keepPortable {
		dec.UseNumber()
	}
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

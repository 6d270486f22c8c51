package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/cachequery/internal/query"
)

// Build produces the descriptor for def through f, so the facade's argument
// checks apply. SPI definitions produce descriptors whose rows are
// map[string]any.
func Build(f *query.Facade[string, map[string]any], def Definition) (query.Spec, error) {
	switch def.Kind {
	case query.KindSQLFields:
		d, err := f.SQLFieldsQuery(def.Clause, query.WithMetadata(def.Metadata))
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", def.Name, err)
		}
		return d, nil
	case query.KindFullText:
		d, err := f.FullTextQuery(def.Class, def.Clause)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", def.Name, err)
		}
		return d, nil
	case query.KindScan:
		return f.ScanQuery(FieldFilter(def.Filter)), nil
	case query.KindSPI:
		return query.SPIQuery[map[string]any](f), nil
	default:
		return nil, fmt.Errorf("query %q: %w", def.Name, &query.InvalidArgumentError{
			Param:  query.ParamKind,
			Reason: fmt.Sprintf("unknown kind %s", def.Kind),
		})
	}
}

// FieldFilter returns a scan predicate matching values whose top-level
// fields equal every entry of fields. Expected values are string, int64 or
// bool; numbers in the value may be float64 or json.Number. An empty map
// yields nil, the match-all filter.
func FieldFilter(fields map[string]any) query.Predicate[string, map[string]any] {
	if len(fields) == 0 {
		return nil
	}
	return func(_ string, value map[string]any) bool {
		for field, want := range fields {
			got, ok := value[field]
			if !ok || !fieldEqual(want, got) {
				return false
			}
		}
		return true
	}
}

func fieldEqual(want, got any) bool {
	switch w := want.(type) {
	case string:
		g, ok := got.(string)
		return ok && g == w
	case bool:
		g, ok := got.(bool)
		return ok && g == w
	case int64:
		switch g := got.(type) {
		case float64:
			return g == float64(w)
		case json.Number:
			n, err := g.Int64()
			return err == nil && n == w
		}
	}
	return false
}

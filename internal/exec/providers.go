package exec

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/roach88/cachequery/internal/cache"
	"github.com/roach88/cachequery/internal/store"
)

// ClassCounts returns an indexing provider reporting how many entries of
// each value class a cache holds. Items are map[string]any with keys
// "class" and "entries"; entries is a json.Number when keeping portable and
// an int64 otherwise.
func ClassCounts(st *store.Store) Indexing {
	return IndexingFunc(func(ctx context.Context, c *cache.Context, keepPortable bool) ([]any, error) {
		counts, err := st.Classes(ctx, c)
		if err != nil {
			return nil, err
		}

		items := make([]any, len(counts))
		for i, cc := range counts {
			var n any = int64(cc.Entries)
			if keepPortable {
				n = json.Number(strconv.Itoa(cc.Entries))
			}
			items[i] = map[string]any{"class": cc.Class, "entries": n}
		}
		return items, nil
	})
}

// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cachequery/internal/cache"
	"github.com/roach88/cachequery/internal/store"
)

// PeopleCacheID is the fixed id of the fixture cache, so output that includes
// it stays deterministic.
var PeopleCacheID = uuid.MustParse("01890a5d-ac96-774b-bcce-b302099a8057")

// Person is the value type stored under class "Person".
type Person struct {
	Name string   `json:"name"`
	Age  int      `json:"age"`
	City string   `json:"city"`
	Tags []string `json:"tags,omitempty"`
}

// People are the Person entries seeded by SeedPeople, by key.
var People = map[string]Person{
	"alice": {Name: "Alice", Age: 30, City: "Berlin", Tags: []string{"admin"}},
	"bob":   {Name: "Bob", Age: 25, City: "Paris"},
	"carol": {Name: "Carol", Age: 30, City: "Paris"},
	"dave":  {Name: "Dave", Age: 41, City: "Berlin"},
}

// OrgKey is the key of the single "Org" entry seeded alongside People.
const OrgKey = "acme"

// PeopleCache returns the fixture cache context: named "people", one
// partition so entries come back in key order.
func PeopleCache() *cache.Context {
	return cache.MustNew("people", cache.WithPartitions(1), cache.WithID(PeopleCacheID))
}

// OpenStore opens a store in a temporary directory, closed on cleanup.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err, "open store")
	t.Cleanup(func() { st.Close() })
	return st
}

// SeedPeople writes People and the Org entry into c.
func SeedPeople(t testing.TB, st *store.Store, c *cache.Context) {
	t.Helper()

	ctx := context.Background()
	for key, p := range People {
		require.NoError(t, st.Put(ctx, c, key, "Person", p), "seed %s", key)
	}

	org := map[string]any{"name": "Acme Corp", "city": "Berlin"}
	require.NoError(t, st.Put(ctx, c, OrgKey, "Org", org), "seed %s", OrgKey)
}

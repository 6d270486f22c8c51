package exec

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/cachequery/internal/cache"
	"github.com/roach88/cachequery/internal/query"
	"github.com/roach88/cachequery/internal/testutil"
)

type score struct {
	Key   string
	Value int
}

type fixture struct {
	engine *Engine
	cache  *cache.Context
	facade *query.Facade[string, testutil.Person]
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	st := testutil.OpenStore(t)
	c := testutil.PeopleCache()
	testutil.SeedPeople(t, st, c)

	return &fixture{
		engine: New(st, opts...),
		cache:  c,
		facade: query.NewFacade[string, testutil.Person](c, false),
	}
}

func keys[K, V any](entries []query.Entry[K, V]) []K {
	out := make([]K, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}

// SQL fields

func TestFields_Rows(t *testing.T) {
	f := newFixture(t)

	d, err := f.facade.SQLFieldsQuery(`
		SELECT json_extract(value, '$.name'), json_extract(value, '$.age')
		FROM entries
		WHERE cache_name = ? AND value_class = 'Person'
		ORDER BY key`)
	require.NoError(t, err)

	res, err := f.engine.Fields(context.Background(), d, "people")
	require.NoError(t, err)

	assert.Nil(t, res.Columns)
	require.Len(t, res.Rows, 4)
	assert.Equal(t, query.Row{"Alice", int64(30)}, res.Rows[0])
	assert.Equal(t, query.Row{"Dave", int64(41)}, res.Rows[3])
}

func TestFields_Metadata(t *testing.T) {
	f := newFixture(t)

	d, err := f.facade.SQLFieldsQuery(
		"SELECT key, part FROM entries WHERE cache_name = ? ORDER BY key LIMIT 1",
		query.WithMetadata(true))
	require.NoError(t, err)

	res, err := f.engine.Fields(context.Background(), d, "people")
	require.NoError(t, err)

	assert.Equal(t, []Column{
		{Name: "key", Type: "TEXT"},
		{Name: "part", Type: "INTEGER"},
	}, res.Columns)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, query.Row{`"acme"`, int64(0)}, res.Rows[0])
}

func TestFields_EmptyResult(t *testing.T) {
	f := newFixture(t)

	d, err := f.facade.SQLFieldsQuery("SELECT key FROM entries WHERE cache_name = 'nobody'")
	require.NoError(t, err)

	res, err := f.engine.Fields(context.Background(), d)
	require.NoError(t, err)
	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
}

func TestFields_BadSQL(t *testing.T) {
	f := newFixture(t)

	d, err := f.facade.SQLFieldsQuery("SELEKT nothing")
	require.NoError(t, err, "the facade does not parse SQL")

	_, err = f.engine.Fields(context.Background(), d)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeStore))
}

func TestFields_WritesRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, tc := range []struct {
		clause string
		args   []any
	}{
		{clause: "DELETE FROM entries"},
		{clause: "UPDATE entries SET value = '{}' WHERE cache_name = ?", args: []any{"people"}},
		{clause: "DROP TABLE entries"},
	} {
		d, err := f.facade.SQLFieldsQuery(tc.clause)
		require.NoError(t, err)

		_, err = f.engine.Fields(ctx, d, tc.args...)
		require.Error(t, err, tc.clause)
		assert.True(t, IsCode(err, ErrCodeStore), tc.clause)
	}

	n, err := f.engine.store.Count(ctx, f.cache)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	entries, err := Entries(ctx, f.engine, f.facade.ScanQuery(nil))
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestFields_ClauseSelectsCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orders := cache.MustNew("orders")
	require.NoError(t, f.engine.store.Put(ctx, orders, "o1", "Order", map[string]any{"total": 12}))

	d, err := f.facade.SQLFieldsQuery("SELECT key FROM entries WHERE cache_name = ? ORDER BY key")
	require.NoError(t, err)

	res, err := f.engine.Fields(ctx, d, "orders")
	require.NoError(t, err)
	assert.Equal(t, []query.Row{{`"o1"`}}, res.Rows)

	res, err = f.engine.Fields(ctx, d, "people")
	require.NoError(t, err)
	assert.Len(t, res.Rows, 5)
}

func TestFields_NilDescriptor(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Fields(context.Background(), nil)
	assert.True(t, IsCode(err, ErrCodeInvalidDescriptor))
}

func TestFields_ZeroDescriptor(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Fields(context.Background(), &query.Descriptor[query.Row]{})
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeInvalidDescriptor))
	assert.True(t, query.IsInvalidArgument(err))
}

func TestFields_WrongKind(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Fields(context.Background(), query.SPIQuery[query.Row](f.facade))
	assert.True(t, IsCode(err, ErrCodeWrongKind))
}

// Scan

func TestEntries_ScanAll(t *testing.T) {
	f := newFixture(t)

	got, err := Entries(context.Background(), f.engine, f.facade.ScanQuery(nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"acme", "alice", "bob", "carol", "dave"}, keys(got))
	assert.Equal(t, testutil.People["alice"], got[1].Value)
	assert.Equal(t, "Acme Corp", got[0].Value.Name)
}

func TestEntries_ScanFilter(t *testing.T) {
	f := newFixture(t)

	d := f.facade.ScanQuery(func(_ string, p testutil.Person) bool {
		return p.Age >= 30
	})
	got, err := Entries(context.Background(), f.engine, d)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "carol", "dave"}, keys(got))
}

func TestEntries_ScanFilterSeesKeys(t *testing.T) {
	f := newFixture(t)

	d := f.facade.ScanQuery(func(k string, _ testutil.Person) bool {
		return k == "bob"
	})
	got, err := Entries(context.Background(), f.engine, d)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "Bob", got[0].Value.Name)
}

func TestEntries_ScanEmptyCache(t *testing.T) {
	f := newFixture(t)
	other := query.NewFacade[string, testutil.Person](cache.MustNew("empty"), false)

	got, err := Entries(context.Background(), f.engine, other.ScanQuery(nil))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

// Full text

func TestEntries_FullText(t *testing.T) {
	tests := []struct {
		name   string
		class  string
		search string
		want   []string
	}{
		{"field term", "Person", "age:30", []string{"alice", "carol"}},
		{"case folded", "Person", "city:PARIS", []string{"bob", "carol"}},
		{"bare term", "Person", "berlin", []string{"alice", "dave"}},
		{"all terms required", "Person", "age:30 city:paris", []string{"carol"}},
		{"array leaf", "Person", "tags:admin", []string{"alice"}},
		{"other class", "Org", "berlin", []string{"acme"}},
		{"multi word value", "Org", "name:corp", []string{"acme"}},
		{"no match", "Person", "tokyo", []string{}},
		{"unknown class", "Robot", "berlin", []string{}},
	}

	f := newFixture(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := f.facade.FullTextQuery(tt.class, tt.search)
			require.NoError(t, err)

			got, err := Entries(context.Background(), f.engine, d)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keys(got))
		})
	}
}

func TestEntries_WrongKind(t *testing.T) {
	f := newFixture(t)

	d := query.SPIQuery[query.Entry[string, testutil.Person]](f.facade)
	_, err := Entries(context.Background(), f.engine, d)
	assert.True(t, IsCode(err, ErrCodeWrongKind))
}

func TestEntries_NilDescriptor(t *testing.T) {
	f := newFixture(t)

	var d *query.Descriptor[query.Entry[string, testutil.Person]]
	_, err := Entries(context.Background(), f.engine, d)
	assert.True(t, IsCode(err, ErrCodeInvalidDescriptor))
}

func TestEntries_DecodeError(t *testing.T) {
	f := newFixture(t)

	// Keys are strings; decoding them as ints fails.
	ints := query.NewFacade[int, testutil.Person](f.cache, false)
	_, err := Entries(context.Background(), f.engine, ints.ScanQuery(nil))
	assert.True(t, IsCode(err, ErrCodeDecode))
}

// Keep portable

func TestEntries_KeepPortableNumbers(t *testing.T) {
	f := newFixture(t)

	for _, keep := range []bool{true, false} {
		facade := query.NewFacade[string, map[string]any](f.cache, keep)
		d, err := facade.FullTextQuery("Person", "name:alice")
		require.NoError(t, err)

		got, err := Entries(context.Background(), f.engine, d)
		require.NoError(t, err)
		require.Len(t, got, 1)

		if keep {
			assert.Equal(t, json.Number("30"), got[0].Value["age"])
		} else {
			assert.Equal(t, float64(30), got[0].Value["age"])
		}
	}
}

// Custom (SPI)

func TestCustom_DelegatesToProvider(t *testing.T) {
	f := newFixture(t)

	var gotCache *cache.Context
	var gotKeep bool
	f.engine.RegisterIndexing("people", IndexingFunc(func(_ context.Context, c *cache.Context, keep bool) ([]any, error) {
		gotCache, gotKeep = c, keep
		return []any{score{"alice", 9}, score{"bob", 7}}, nil
	}))

	portable := query.NewFacade[string, testutil.Person](f.cache, true)
	got, err := Custom(context.Background(), f.engine, query.SPIQuery[score](portable))
	require.NoError(t, err)

	assert.Equal(t, []score{{"alice", 9}, {"bob", 7}}, got)
	assert.Same(t, f.cache, gotCache)
	assert.True(t, gotKeep)
}

func TestCustom_NoProvider(t *testing.T) {
	f := newFixture(t)

	_, err := Custom(context.Background(), f.engine, query.SPIQuery[score](f.facade))
	assert.True(t, IsCode(err, ErrCodeNoProvider))
}

func TestCustom_Unregister(t *testing.T) {
	f := newFixture(t)

	f.engine.RegisterIndexing("people", IndexingFunc(func(context.Context, *cache.Context, bool) ([]any, error) {
		return nil, nil
	}))
	f.engine.UnregisterIndexing("people")

	_, err := Custom(context.Background(), f.engine, query.SPIQuery[score](f.facade))
	assert.True(t, IsCode(err, ErrCodeNoProvider))
}

func TestCustom_WrongItemType(t *testing.T) {
	f := newFixture(t)
	f.engine.RegisterIndexing("people", IndexingFunc(func(context.Context, *cache.Context, bool) ([]any, error) {
		return []any{score{"a", 1}, "not a score"}, nil
	}))

	_, err := Custom(context.Background(), f.engine, query.SPIQuery[score](f.facade))
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeProviderResult))
	assert.Contains(t, err.Error(), "item 1 has type string")
}

func TestCustom_ProviderError(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("index offline")
	f.engine.RegisterIndexing("people", IndexingFunc(func(context.Context, *cache.Context, bool) ([]any, error) {
		return nil, boom
	}))

	_, err := Custom(context.Background(), f.engine, query.SPIQuery[score](f.facade))
	assert.True(t, IsCode(err, ErrCodeProviderResult))
	assert.ErrorIs(t, err, boom)
}

func TestCustom_WrongKind(t *testing.T) {
	f := newFixture(t)

	d, err := f.facade.SQLFieldsQuery("select 1")
	require.NoError(t, err)

	_, err = Custom(context.Background(), f.engine, d)
	assert.True(t, IsCode(err, ErrCodeWrongKind))
}

// Cross-cutting

func TestEngine_CancelledContext(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Entries(ctx, f.engine, f.facade.ScanQuery(nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	f := newFixture(t, WithMetrics(m))

	_, err := Entries(context.Background(), f.engine, f.facade.ScanQuery(nil))
	require.NoError(t, err)
	_, err = Custom(context.Background(), f.engine, query.SPIQuery[score](f.facade))
	require.Error(t, err)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.ExecutionsTotal.WithLabelValues("scan", "ok")))
	assert.Equal(t, 5.0, promtest.ToFloat64(m.RowsTotal.WithLabelValues("scan")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.ExecutionsTotal.WithLabelValues("spi", "error")))
	assert.Equal(t, 2, promtest.CollectAndCount(m.ExecutionDuration))
}

func TestEngine_LogsExecutions(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	f := newFixture(t, WithLogger(zap.New(core)))

	d, err := f.facade.FullTextQuery("Person", "age:30")
	require.NoError(t, err)
	_, err = Entries(context.Background(), f.engine, d)
	require.NoError(t, err)

	executed := logs.FilterMessage("query executed").All()
	require.Len(t, executed, 1)

	fields := executed[0].ContextMap()
	assert.Equal(t, "full_text", fields["kind"])
	assert.Equal(t, "people", fields["cache"])
	assert.Equal(t, int64(2), fields["rows"])
	assert.NotEmpty(t, fields["exec_id"])

	assert.Equal(t, 1, logs.FilterMessage("entries filtered").Len())
}

func TestEngine_LogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	f := newFixture(t, WithLogger(zap.New(core)))

	_, err := Custom(context.Background(), f.engine, query.SPIQuery[score](f.facade))
	require.Error(t, err)

	assert.Equal(t, 1, logs.FilterMessage("query failed").Len())
}

func TestEngine_ConcurrentExecution(t *testing.T) {
	f := newFixture(t)

	d, err := f.facade.FullTextQuery("Person", "city:paris")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := Entries(context.Background(), f.engine, d)
			if err == nil && len(got) != 2 {
				err = errors.New("unexpected match count")
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "worker %d", i)
	}
}

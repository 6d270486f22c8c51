package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cachequery/internal/exec"
	"github.com/roach88/cachequery/internal/query"
	"github.com/roach88/cachequery/internal/testutil"
)

func newFacade(keepPortable bool) *query.Facade[string, map[string]any] {
	return query.NewFacade[string, map[string]any](testutil.PeopleCache(), keepPortable)
}

func TestBuild_Kinds(t *testing.T) {
	cat, err := Load("testdata/people.cue")
	require.NoError(t, err)
	f := newFacade(true)

	for _, def := range cat.Definitions {
		t.Run(def.Name, func(t *testing.T) {
			spec, err := Build(f, def)
			require.NoError(t, err)
			require.NoError(t, query.Check(spec))

			assert.Equal(t, def.Kind, spec.Kind())
			assert.Equal(t, "people", spec.Cache().Name())
			assert.True(t, spec.KeepPortable())
		})
	}
}

func TestBuild_CarriesDefinitionFields(t *testing.T) {
	f := newFacade(false)

	spec, err := Build(f, Definition{Name: "q", Kind: query.KindSQLFields, Clause: "select 1", Metadata: true})
	require.NoError(t, err)
	assert.Equal(t, "select 1", spec.Clause())
	assert.True(t, spec.IncludeMetadata())

	spec, err = Build(f, Definition{Name: "t", Kind: query.KindFullText, Class: "Person", Clause: "age:30"})
	require.NoError(t, err)
	assert.Equal(t, "Person", spec.ClassName())
	assert.Equal(t, "age:30", spec.Clause())

	spec, err = Build(f, Definition{Name: "s", Kind: query.KindScan})
	require.NoError(t, err)
	assert.False(t, spec.HasFilter())

	spec, err = Build(f, Definition{Name: "s", Kind: query.KindScan, Filter: map[string]any{"age": int64(30)}})
	require.NoError(t, err)
	assert.True(t, spec.HasFilter())
}

func TestBuild_FacadeRejects(t *testing.T) {
	f := newFacade(false)

	tests := []struct {
		name  string
		def   Definition
		param string
	}{
		{"sql without clause", Definition{Name: "a", Kind: query.KindSQLFields}, query.ParamQuery},
		{"full text without class", Definition{Name: "b", Kind: query.KindFullText, Clause: "x"}, query.ParamClassName},
		{"full text without search", Definition{Name: "c", Kind: query.KindFullText, Class: "Person"}, query.ParamSearch},
		{"unknown kind", Definition{Name: "d"}, query.ParamKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Build(f, tt.def)
			require.Error(t, err)
			assert.Nil(t, spec)
			assert.True(t, query.IsInvalidArgument(err))
			assert.Equal(t, tt.param, query.InvalidParam(err))
			assert.Contains(t, err.Error(), tt.def.Name)
		})
	}
}

func TestFieldFilter(t *testing.T) {
	assert.Nil(t, FieldFilter(nil))
	assert.Nil(t, FieldFilter(map[string]any{}))

	filter := FieldFilter(map[string]any{"city": "Paris", "age": int64(30), "admin": false})

	tests := []struct {
		name  string
		value map[string]any
		want  bool
	}{
		{"float number", map[string]any{"city": "Paris", "age": 30.0, "admin": false}, true},
		{"portable number", map[string]any{"city": "Paris", "age": json.Number("30"), "admin": false}, true},
		{"fractional number", map[string]any{"city": "Paris", "age": 30.5, "admin": false}, false},
		{"portable fraction", map[string]any{"city": "Paris", "age": json.Number("30.5"), "admin": false}, false},
		{"wrong string", map[string]any{"city": "paris", "age": 30.0, "admin": false}, false},
		{"wrong bool", map[string]any{"city": "Paris", "age": 30.0, "admin": true}, false},
		{"type mismatch", map[string]any{"city": "Paris", "age": "30", "admin": false}, false},
		{"missing field", map[string]any{"city": "Paris", "age": 30.0}, false},
		{"extra fields ignored", map[string]any{"city": "Paris", "age": 30.0, "admin": false, "x": 1.0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filter("k", tt.value))
		})
	}
}

func TestBuild_ExecutesAgainstStore(t *testing.T) {
	st := testutil.OpenStore(t)
	c := testutil.PeopleCache()
	testutil.SeedPeople(t, st, c)
	engine := exec.New(st)

	cat, err := Load("testdata/people.yaml")
	require.NoError(t, err)

	for _, keep := range []bool{false, true} {
		f := query.NewFacade[string, map[string]any](c, keep)

		def, _ := cat.Lookup("thirty")
		spec, err := Build(f, def)
		require.NoError(t, err)

		d, ok := spec.(*query.Descriptor[query.Entry[string, map[string]any]])
		require.True(t, ok, "scan builds an entry descriptor")

		got, err := exec.Entries(context.Background(), engine, d)
		require.NoError(t, err)
		require.Len(t, got, 2, "keepPortable=%v", keep)
		assert.Equal(t, "alice", got[0].Key)
		assert.Equal(t, "carol", got[1].Key)
	}
}

// Package catalog loads named query definitions from CUE or YAML files and
// builds them into descriptors through a query.Facade.
//
// A catalog is a flat namespace of definitions. Loading checks structure
// (names, kinds, filter shapes); the facade checks the rest when a
// definition is built, so a catalog may hold definitions that load fine but
// fail to build with *query.InvalidArgumentError.
package catalog

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/cachequery/internal/query"
)

// Error code constants.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeNotFound     = "E005" // Catalog file not found
	ErrCodeParseFailed  = "E004" // File could not be parsed
	ErrCodeSchema       = "E006" // CUE schema violation
	ErrCodeExtension    = "E008" // Unsupported file extension
	ErrCodeEmpty        = "E009" // No definitions in file
	ErrCodeMissingName  = "E201" // Definition without a name
	ErrCodeDuplicate    = "E202" // Name defined twice
	ErrCodeUnknownKind  = "E203" // Kind is not one of the query kinds
	ErrCodeFilterValue  = "E204" // Filter value is not a string, integer or bool
	ErrCodeFilterOnKind = "E205" // Filter given for a kind other than scan
)

// Definition is one named query.
type Definition struct {
	Name     string         `json:"name" yaml:"name"`
	Kind     query.Kind     `json:"kind" yaml:"kind"`
	Class    string         `json:"class,omitempty" yaml:"class,omitempty"`
	Clause   string         `json:"clause,omitempty" yaml:"clause,omitempty"`
	Metadata bool           `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Filter   map[string]any `json:"filter,omitempty" yaml:"filter,omitempty"`
}

// Catalog holds definitions in file order.
type Catalog struct {
	Source      string
	Definitions []Definition
}

// Lookup returns the definition with the given name.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	for _, d := range c.Definitions {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Names returns the definition names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Definitions))
	for i, d := range c.Definitions {
		names[i] = d.Name
	}
	sort.Strings(names)
	return names
}

// LoadError represents an error found while loading a catalog.
type LoadError struct {
	Code    string
	Message string
	File    string
	Line    int // 1-based; zero when unknown
	Column  int
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.File, e.Line, e.Column, e.Code, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load reads a catalog from path, choosing the format by extension
// (.cue, .yaml or .yml).
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "catalog file not found", File: path}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: err.Error(), File: path}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return ParseCUE(path, data)
	case ".yaml", ".yml":
		return ParseYAML(path, data)
	default:
		return nil, &LoadError{
			Code:    ErrCodeExtension,
			Message: fmt.Sprintf("unsupported catalog extension %q (want .cue, .yaml or .yml)", filepath.Ext(path)),
			File:    path,
		}
	}
}

// raw is a definition as read from a file, before kind and filter checks.
type raw struct {
	Name     string
	Kind     string
	Class    string
	Clause   string
	Metadata bool
	Filter   map[string]any
	Line     int
	Column   int
}

// assemble turns raw definitions into a Catalog, checking names, kinds and
// filters.
func assemble(file string, raws []raw) (*Catalog, error) {
	if len(raws) == 0 {
		return nil, &LoadError{Code: ErrCodeEmpty, Message: "no query definitions", File: file}
	}

	cat := &Catalog{Source: file}
	seen := make(map[string]bool, len(raws))
	for _, r := range raws {
		fail := func(code, format string, args ...any) error {
			return &LoadError{
				Code:    code,
				Message: fmt.Sprintf(format, args...),
				File:    file,
				Line:    r.Line,
				Column:  r.Column,
			}
		}

		if r.Name == "" {
			return nil, fail(ErrCodeMissingName, "query definition has no name")
		}
		if seen[r.Name] {
			return nil, fail(ErrCodeDuplicate, "query %q is defined more than once", r.Name)
		}
		seen[r.Name] = true

		kind, err := query.ParseKind(r.Kind)
		if err != nil {
			return nil, fail(ErrCodeUnknownKind, "query %q: %v", r.Name, err)
		}
		if len(r.Filter) > 0 && kind != query.KindScan {
			return nil, fail(ErrCodeFilterOnKind, "query %q: filter is only allowed for kind scan", r.Name)
		}

		var filter map[string]any
		if len(r.Filter) > 0 {
			filter = make(map[string]any, len(r.Filter))
			for field, v := range r.Filter {
				nv, ok := normalizeFilterValue(v)
				if !ok {
					return nil, fail(ErrCodeFilterValue, "query %q: filter field %q has unsupported value %v (%T)", r.Name, field, v, v)
				}
				filter[field] = nv
			}
		}

		cat.Definitions = append(cat.Definitions, Definition{
			Name:     r.Name,
			Kind:     kind,
			Class:    r.Class,
			Clause:   r.Clause,
			Metadata: r.Metadata,
			Filter:   filter,
		})
	}
	return cat, nil
}

// normalizeFilterValue maps the scalar types produced by the CUE and YAML
// decoders onto string, int64 and bool.
func normalizeFilterValue(v any) (any, bool) {
	switch val := v.(type) {
	case string, bool, int64:
		return val, true
	case int:
		return int64(val), true
	case uint64:
		if val > 1<<63-1 {
			return nil, false
		}
		return int64(val), true
	case *big.Int:
		if !val.IsInt64() {
			return nil, false
		}
		return val.Int64(), true
	default:
		return nil, false
	}
}

package catalog

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource []byte

// cueQuery mirrors #Query for Decode.
type cueQuery struct {
	Kind     string         `json:"kind"`
	Class    string         `json:"class"`
	Clause   string         `json:"clause"`
	Metadata bool           `json:"metadata"`
	Filter   map[string]any `json:"filter"`
}

// ParseCUE parses a CUE catalog. Definitions live under the top-level
// "query" struct, keyed by name:
//
//	query: adults: {
//		kind: "scan"
//		filter: age: 30
//	}
//
// The file is unified with the embedded #Catalog schema and must be concrete.
func ParseCUE(file string, data []byte) (*Catalog, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("catalog schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(file))
	if err := v.Err(); err != nil {
		return nil, cueLoadError(ErrCodeParseFailed, file, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Catalog")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(ErrCodeSchema, file, err)
	}

	queries := unified.LookupPath(cue.ParsePath("query"))
	if !queries.Exists() {
		return assemble(file, nil)
	}

	iter, err := queries.Fields()
	if err != nil {
		return nil, cueLoadError(ErrCodeGeneric, file, err)
	}

	var raws []raw
	for iter.Next() {
		qv := iter.Value()

		var q cueQuery
		if err := qv.Decode(&q); err != nil {
			return nil, cueLoadError(ErrCodeSchema, file, err)
		}

		pos := v.LookupPath(cue.MakePath(cue.Str("query"), cue.Str(iter.Label()))).Pos()
		raws = append(raws, raw{
			Name:     iter.Label(),
			Kind:     q.Kind,
			Class:    q.Class,
			Clause:   q.Clause,
			Metadata: q.Metadata,
			Filter:   q.Filter,
			Line:     pos.Line(),
			Column:   pos.Column(),
		})
	}

	return assemble(file, raws)
}

// cueLoadError converts a CUE error to a LoadError carrying the position of
// its first entry.
func cueLoadError(code, file string, err error) *LoadError {
	loadErr := &LoadError{Code: code, Message: err.Error(), File: file}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return loadErr
	}
	first := errs[0]
	loadErr.Message = first.Error()
	for _, pos := range cueerrors.Positions(first) {
		if pos.Filename() == file {
			loadErr.Line = pos.Line()
			loadErr.Column = pos.Column()
			break
		}
	}
	return loadErr
}
